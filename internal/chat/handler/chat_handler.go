// Package handler exposes the chat handlers over HTTP.
//
// Every chat endpoint accepts the same body:
//
//	{"messages": [...], "message": "...", "history": [...], "isFirstMessage": false}
//
// and answers 200 with {"response": "...", "task"?, "action"?, "insight"?, "intencion"?}.
// Any failure is a 500 with {"error": "...", "response": <apology>} so the UI
// always has something to show.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/handler")

// maxBodyBytes bounds a chat request body. Long histories fit comfortably.
const maxBodyBytes = 1 << 20

// ============================================================
// ChatHandler: POST /v1/{handler}
// ============================================================

// ChatHandler returns the http.HandlerFunc serving one DomainHandler.
// The user id comes from the authenticated context, never from the body.
func ChatHandler(h port.DomainHandler, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	logger = logger.With(zap.String("handler", h.Name()))

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/"+h.Name())
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			metrics.IncrRequest("error")
			logger.Warn("invalid chat request body", zap.Error(err))
			writeFailure(w, "invalid request body")
			return
		}
		req.UserID = maindomain.UserIDFromContext(ctx)
		if req.UserID != "" {
			span.SetAttributes(attribute.String("user.id", req.UserID))
		}

		resp, err := h.Handle(ctx, &req)
		if err != nil {
			metrics.IncrRequest("error")
			span.RecordError(err)
			logFailure(logger, err)
			writeFailure(w, err.Error())
			return
		}

		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeFailure always answers 500 with the apology text as response.
func writeFailure(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, domain.ChatResponse{
		Response: domain.ApologyText,
		Error:    msg,
	})
}

func logFailure(logger *zap.Logger, err error) {
	var validation *maindomain.ErrValidation
	var completion *maindomain.ErrCompletion
	var delegation *maindomain.ErrDelegation

	switch {
	case errors.As(err, &validation):
		logger.Warn("chat request rejected", zap.String("field", validation.Field), zap.Error(err))
	case errors.As(err, &delegation):
		logger.Error("delegation failed", zap.String("delegated_to", delegation.Handler), zap.Error(err))
	case errors.As(err, &completion):
		logger.Error("completion failed", zap.String("domain", completion.Domain), zap.String("sentinel", completion.Sentinel))
	default:
		logger.Error("chat request failed", zap.Error(err))
	}
}
