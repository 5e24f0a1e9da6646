package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Market
// GET /v1/market/convert?amount=&from=&to=
// GET /v1/market/quotes?ids=btc,eth&currency=usd
// ============================================================

var errNoMarket = &domain.ErrUnavailable{Feature: "market"}

func convertHandler(svc *service.MarketService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			handleServiceError(w, errNoMarket, logger)
			return
		}
		q := r.URL.Query()
		amount, err := strconv.ParseFloat(q.Get("amount"), 64)
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "amount", Message: "must be a number"}, logger)
			return
		}

		conv, err := svc.Convert(r.Context(), amount, q.Get("from"), q.Get("to"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

type quotesResponse struct {
	Currency string              `json:"currency"`
	Quotes   []domain.PriceQuote `json:"quotes"`
}

func quotesHandler(svc *service.MarketService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			handleServiceError(w, errNoMarket, logger)
			return
		}
		q := r.URL.Query()
		var ids []string
		for _, id := range strings.Split(q.Get("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}

		quotes, err := svc.Quotes(r.Context(), ids, q.Get("currency"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		currency := strings.ToLower(q.Get("currency"))
		if currency == "" {
			currency = "usd"
		}
		writeJSON(w, http.StatusOK, quotesResponse{Currency: currency, Quotes: quotes})
	}
}
