package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/interview"
)

var (
	errBadRequestBody   = errors.New("request body is not valid JSON")
	errMissingToken     = errors.New("bearer token is required")
	errInvalidSlotIndex = errors.New("slot index must be an integer")
)

// retryAfterSeconds is advertised when optimistic writes keep losing races.
const retryAfterSeconds = 1

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, body := classifyError(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err, "error_kind", application.ErrorKind(err))
	}
	r.writeJSON(ctx, w, status, body)
}

// classifyError maps domain and service errors onto HTTP statuses.
func classifyError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{ErrorCode: "FORBIDDEN", Message: "you are not a party to this interview"}
	case errors.Is(err, application.ErrProposalNotFound):
		return http.StatusNotFound, errorResponse{ErrorCode: "PROPOSAL_NOT_FOUND", Message: "no interview proposal exists for this application"}
	case errors.Is(err, application.ErrApplicationNotFound):
		return http.StatusNotFound, errorResponse{ErrorCode: "APPLICATION_NOT_FOUND", Message: "application does not exist"}
	case errors.Is(err, interview.ErrSlotNotFound):
		return http.StatusNotFound, errorResponse{ErrorCode: "SLOT_NOT_FOUND", Message: "slot does not exist"}
	case errors.Is(err, interview.ErrInvalidStateTransition):
		return http.StatusConflict, errorResponse{ErrorCode: "INVALID_STATE_TRANSITION", Message: "operation is not allowed in the current state, reload and retry"}
	case errors.Is(err, interview.ErrVotingClosed):
		return http.StatusConflict, errorResponse{ErrorCode: "VOTING_CLOSED", Message: "voting is closed for this interview"}
	case errors.Is(err, interview.ErrAlreadyConfirmed):
		return http.StatusConflict, errorResponse{ErrorCode: "ALREADY_CONFIRMED", Message: "a different slot is already confirmed"}
	case errors.Is(err, interview.ErrCancellationWindowClosed):
		return http.StatusUnprocessableEntity, errorResponse{ErrorCode: "CANCELLATION_WINDOW_CLOSED", Message: err.Error()}
	case errors.Is(err, application.ErrConcurrentModification):
		return http.StatusServiceUnavailable, errorResponse{ErrorCode: "CONCURRENT_MODIFICATION", Message: "the interview is being updated, retry shortly"}
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "request contains invalid fields",
			Errors:    vErr.FieldErrors,
		}
	}
	return http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "internal server error"}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
