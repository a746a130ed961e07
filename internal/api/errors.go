package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/ingest"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, common.ErrUnsupportedFormat),
		errors.Is(err, common.ErrEmptyFile),
		errors.Is(err, common.ErrFileTooLarge),
		errors.Is(err, common.ErrNoTransactions),
		errors.Is(err, common.ErrBookRequiresTabular):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrEmptyWorkbook),
		errors.Is(err, common.ErrCorruptedWorkbook),
		errors.Is(err, common.ErrParse),
		errors.Is(err, common.ErrTooManyPairs):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, common.ErrSessionNotFound),
		errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrSessionExpired):
		return fiber.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusRequestTimeout
	}

	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// hintFor returns a remediation hint for errors that have one.
func hintFor(err error) string {
	var noTxns *common.NoTransactionsError
	if errors.As(err, &noTxns) {
		return noTxns.Hint()
	}
	if errors.Is(err, common.ErrUnsupportedFormat) {
		return "Supported formats: " + strings.Join(ingest.SupportedExtensions(), ", ")
	}
	return ""
}

// messageFor hides internal error text from clients.
func messageFor(err error, status int) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	if status >= fiber.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		common.LogError(c.UserContext(), err, "Request error", common.Fields{"path": c.Path()})
	}
	return c.Status(status).JSON(errorResponse{
		Error: messageFor(err, status),
		Hint:  hintFor(err),
	})
}

// badRequest builds a 400 with a fixed client message.
func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
