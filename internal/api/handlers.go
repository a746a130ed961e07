package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/ingest"
	"github.com/Veraticus/reconcile/internal/match"
	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/pipeline"
)

type uploadResponse struct {
	SessionID          string                 `json:"sessionId"`
	Source             model.ResultSource     `json:"source"`
	Summary            model.Summary          `json:"summary"`
	Transactions       []model.Transaction    `json:"transactions"`
	Duplicates         []model.DuplicateGroup `json:"duplicates"`
	PreviouslyImported []model.Transaction    `json:"previouslyImported"`
	Unmatched          []model.Transaction    `json:"unmatched"`
	BookOnly           []model.Transaction    `json:"bookOnly"`
	Matches            []model.AutoMatch      `json:"matches"`
	Statement          *model.StatementInfo   `json:"statement,omitempty"`
	ExpiresAt          time.Time              `json:"expiresAt"`
}

type transferRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type transferResponse struct {
	Success          bool   `json:"success"`
	ReconciliationID string `json:"reconciliationId"`
}

type dismissRequest struct {
	TransactionID string `json:"transactionId"`
}

type matchRequest struct {
	Bank []model.Transaction `json:"bank"`
	Book []model.Transaction `json:"book"`
}

type matchResponse struct {
	Matches   []model.AutoMatch   `json:"matches"`
	Unmatched []model.Transaction `json:"unmatched"`
	BookOnly  []model.Transaction `json:"bookOnly"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	ctx := c.UserContext()

	header, err := c.FormFile("csv")
	if err != nil {
		return badRequest("No file uploaded. Use form field 'csv'.")
	}
	bank, err := s.readUpload(header)
	if err != nil {
		return err
	}
	bank.MultiMonth = c.FormValue("messyCSVMode") == "true"

	var book *pipeline.Upload
	if bookHeader, err := c.FormFile("book"); err == nil {
		upload, err := s.readUpload(bookHeader)
		if err != nil {
			return fmt.Errorf("bookkeeping file: %w", err)
		}
		book = &upload
	}

	result, err := s.pipeline.ProcessForUser(ctx, strings.TrimSpace(c.FormValue("userId")), bank, book)
	if err != nil {
		return err
	}

	if err := s.sessions.Put(ctx, result.ID, result, s.opts.SessionTTL); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return c.JSON(uploadResponse{
		SessionID:          result.ID,
		Source:             result.Source,
		Summary:            result.Summary,
		Transactions:       preview(result.Transactions),
		Duplicates:         preview(result.Duplicates),
		PreviouslyImported: preview(result.Existing),
		Unmatched:          preview(result.Unmatched),
		BookOnly:           preview(result.BookOnly),
		Matches:            preview(result.Matches),
		Statement:          result.Statement,
		ExpiresAt:          result.ExpiresAt,
	})
}

// readUpload validates name and size before reading any bytes.
func (s *Server) readUpload(header *multipart.FileHeader) (pipeline.Upload, error) {
	if _, err := ingest.DetectWithLimit(header.Filename, header.Size, s.opts.MaxUploadBytes); err != nil {
		return pipeline.Upload{}, err
	}

	f, err := header.Open()
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return pipeline.Upload{FileName: header.Filename, Data: data}, nil
}

func (s *Server) handleTransfer(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body.")
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.UserID) == "" {
		return badRequest("Missing sessionId or userId.")
	}
	if s.records == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Permanent storage is not configured.")
	}

	result, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return err
	}

	rec := model.NewReconciliation(result, req.UserID, s.opts.Now())
	id, err := s.records.SaveReconciliation(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to save reconciliation: %w", err)
	}

	if err := s.sessions.Delete(ctx, req.SessionID); err != nil {
		common.FromContext(ctx).Warn("Failed to delete transferred session",
			"session_id", req.SessionID, "error", err)
	}

	common.FromContext(ctx).Info("Transferred session",
		"session_id", req.SessionID,
		"reconciliation_id", id,
		"transactions", len(rec.Transactions))

	return c.JSON(transferResponse{Success: true, ReconciliationID: id})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	result, err := s.sessions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleDismissDuplicate(c *fiber.Ctx) error {
	var req dismissRequest
	if err := c.BodyParser(&req); err != nil || req.TransactionID == "" {
		return badRequest("Missing transactionId.")
	}
	return s.rewrite(c, func(result *model.SessionResult) error {
		return s.pipeline.DismissDuplicate(c.UserContext(), result, req.TransactionID)
	})
}

func (s *Server) handleClearDuplicates(c *fiber.Ctx) error {
	return s.rewrite(c, func(result *model.SessionResult) error {
		return s.pipeline.ClearDuplicates(c.UserContext(), result)
	})
}

func (s *Server) handleAcceptMatch(c *fiber.Ctx) error {
	pair, err := parsePair(c)
	if err != nil {
		return err
	}
	return s.rewrite(c, func(result *model.SessionResult) error {
		_, err := s.pipeline.AcceptMatch(c.UserContext(), result, pair.BankID, pair.BookID)
		return err
	})
}

func (s *Server) handleRejectMatch(c *fiber.Ctx) error {
	pair, err := parsePair(c)
	if err != nil {
		return err
	}
	return s.rewrite(c, func(result *model.SessionResult) error {
		return s.pipeline.RejectMatch(c.UserContext(), result, pair.BankID, pair.BookID)
	})
}

func parsePair(c *fiber.Ctx) (model.MatchPair, error) {
	var pair model.MatchPair
	if err := c.BodyParser(&pair); err != nil || pair.BankID == "" || pair.BookID == "" {
		return pair, badRequest("Missing bankId or bookId.")
	}
	return pair, nil
}

// rewrite loads the session, applies fn and stores the result under the
// same deadline.
func (s *Server) rewrite(c *fiber.Ctx, fn func(*model.SessionResult) error) error {
	ctx := c.UserContext()
	id := c.Params("id")

	result, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(result); err != nil {
		return err
	}
	if err := s.sessions.Update(ctx, id, result); err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleMatch(c *fiber.Ctx) error {
	var req matchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body.")
	}
	if err := checkIDs("bank", req.Bank); err != nil {
		return err
	}
	if err := checkIDs("book", req.Book); err != nil {
		return err
	}

	matches, err := s.pipeline.Engine().Match(c.UserContext(), req.Bank, req.Book)
	if err != nil {
		if errors.Is(err, common.ErrTooManyPairs) {
			return common.NewUserError("Too many transactions to compare in one request.", err)
		}
		return err
	}

	return c.JSON(matchResponse{
		Matches:   matches,
		Unmatched: nonNil(match.Unmatched(req.Bank, matches)),
		BookOnly:  nonNil(match.UnmatchedBook(req.Book, matches)),
	})
}

// checkIDs rejects a side whose transactions lack an id or repeat one;
// unmatched transactions are told apart by id.
func checkIDs(side string, txns []model.Transaction) error {
	seen := make(map[string]bool, len(txns))
	for i, txn := range txns {
		id := strings.TrimSpace(txn.ID)
		if id == "" {
			return badRequest(fmt.Sprintf("Transaction %d in %s has no id.", i, side))
		}
		if seen[id] {
			return badRequest(fmt.Sprintf("Duplicate id %q in %s.", id, side))
		}
		seen[id] = true
	}
	return nil
}

// preview returns at most PreviewLimit items and never nil.
func preview[T any](items []T) []T {
	if len(items) > PreviewLimit {
		return items[:PreviewLimit]
	}
	return nonNil(items)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
