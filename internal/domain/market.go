package domain

import "strings"

// PriceQuote is a spot price for one asset in one currency.
// Quotes are fetched fresh per request and never cached.
type PriceQuote struct {
	AssetID     string   `json:"asset_id"`
	Currency    string   `json:"currency"`
	SpotPrice   float64  `json:"spot_price"`
	Change24hPc *float64 `json:"change_24h_pct,omitempty"`
}

// Conversion is the result of GET /v1/market/convert.
type Conversion struct {
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	AssetID   string  `json:"asset_id"`
	To        string  `json:"to"`
	Rate      float64 `json:"rate"`
	Converted float64 `json:"converted"`
}

// Well-known asset ids on the price API.
const (
	AssetBitcoin  = "bitcoin"
	AssetEthereum = "ethereum"
	AssetTether   = "tether"
)

var assetSymbols = map[string]string{
	"btc":      "bitcoin",
	"bitcoin":  "bitcoin",
	"eth":      "ethereum",
	"ethereum": "ethereum",
	"usdt":     "tether",
	"tether":   "tether",
	"usdc":     "usd-coin",
	"sol":      "solana",
	"solana":   "solana",
	"matic":    "matic-network",
	"polygon":  "matic-network",
}

// ResolveAssetID maps a ticker or common name to the price API asset id.
// Unknown symbols are passed through lowercased.
func ResolveAssetID(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if id, ok := assetSymbols[s]; ok {
		return id
	}
	return s
}
