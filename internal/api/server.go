// Package api exposes the reconciliation pipeline over HTTP.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/reconcile/internal/ingest"
	"github.com/Veraticus/reconcile/internal/pipeline"
	"github.com/Veraticus/reconcile/internal/service"
)

func init() {
	// Amounts are sent to clients as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// PreviewLimit caps each list in the upload response.
const PreviewLimit = 10

// Options configures a Server.
type Options struct {
	MaxUploadBytes int64
	SessionTTL     time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Now            func() time.Time
}

// Server wires the HTTP routes to the pipeline and stores.
type Server struct {
	app      *fiber.App
	pipeline *pipeline.Pipeline
	sessions service.SessionStore
	records  service.RecordStore
	opts     Options
}

// NewServer creates a server. records may be nil, in which case transfers
// fail with 503.
func NewServer(p *pipeline.Pipeline, sessions service.SessionStore, records service.RecordStore, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = ingest.DefaultMaxFileSize
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = pipeline.DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		pipeline: p,
		sessions: sessions,
		records:  records,
		opts:     opts,
	}

	s.app = fiber.New(fiber.Config{
		// Two files plus multipart framing.
		BodyLimit:             int(2*opts.MaxUploadBytes) + 1<<20,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	s.app.Use(requestLogger())
	s.app.Use(recover.New())

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/upload", s.handleUpload)
	api.Post("/transfer", s.handleTransfer)
	api.Post("/match", s.handleMatch)

	sessions := api.Group("/sessions/:id")
	sessions.Get("", s.handleGetSession)
	sessions.Post("/duplicates/dismiss", s.handleDismissDuplicate)
	sessions.Delete("/duplicates", s.handleClearDuplicates)
	sessions.Post("/matches/accept", s.handleAcceptMatch)
	sessions.Post("/matches/reject", s.handleRejectMatch)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	slog.Info("Starting HTTP server", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
