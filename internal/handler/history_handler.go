package handler

import (
	"net/http"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// History
// GET /v1/movements?limit=
// GET /v1/contacts?q=
// GET /v1/services
// ============================================================

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

func listMovementsHandler(svc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		movements, err := svc.Movements(ctx, domain.UserIDFromContext(ctx), queryInt(r, "limit"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[domain.Movement]{Data: movements, Total: len(movements)})
	}
}

func listContactsHandler(svc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := svc.Contacts(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[domain.Contact]{Data: contacts, Total: len(contacts)})
	}
}

func listServicesHandler(svc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := svc.Services(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[domain.SavedService]{Data: services, Total: len(services)})
	}
}
