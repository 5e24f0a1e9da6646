package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chatdomain "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Approval flow
// POST /v1/actions/approve              body: ProposedAction
// POST /v1/tasks/approve                body: ProposedTask
// POST /v1/actions/{actionId}/reject    body: {"type"?}
// POST /v1/tasks/{taskId}/cancel        body: {"type"?}
// ============================================================

var errNoApprovals = &domain.ErrUnavailable{Feature: "approvals"}

func approveActionHandler(svc *service.ActionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/actions/approve")
		defer span.End()

		if svc == nil {
			handleServiceError(w, errNoApprovals, logger)
			return
		}
		var action chatdomain.ProposedAction
		if err := decodeJSON(w, r, &action); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		receipt, err := svc.Approve(ctx, domain.UserIDFromContext(ctx), &action)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}

func approveTaskHandler(svc *service.ActionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks/approve")
		defer span.End()

		if svc == nil {
			handleServiceError(w, errNoApprovals, logger)
			return
		}
		var task chatdomain.ProposedTask
		if err := decodeJSON(w, r, &task); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		receipt, err := svc.ApproveTask(ctx, domain.UserIDFromContext(ctx), &task)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}

type rejectRequest struct {
	Type string `json:"type"`
}

// rejectHandler serves both reject and cancel; param names the URL
// parameter carrying the proposal id.
func rejectHandler(svc *service.ActionService, param string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			handleServiceError(w, errNoApprovals, logger)
			return
		}

		// The body is optional.
		var req rejectRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			handleServiceError(w, &domain.ErrValidation{Field: "body", Message: "invalid JSON body"}, logger)
			return
		}

		receipt, err := svc.Reject(ctx, domain.UserIDFromContext(ctx), chi.URLParam(r, param), req.Type)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}
