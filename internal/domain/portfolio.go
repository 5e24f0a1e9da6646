package domain

// PortfolioSnapshot is the fixed context the investment advisor always sees.
type PortfolioSnapshot struct {
	OwnerName      string             `json:"owner_name"`
	RiskProfile    string             `json:"risk_profile"`
	Goal           string             `json:"goal"`
	TotalValue     float64            `json:"total_value"`
	Performance24h float64            `json:"performance_24h"`
	Distribution   []Allocation       `json:"distribution"`
	Holdings       map[string]Holding `json:"holdings"`
	RecentTrades   []HistoricalTrade  `json:"recent_trades"`
}

// Allocation is the share (0-100) of the portfolio held in one asset.
type Allocation struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Holding is the quantity and reference price of one asset.
type Holding struct {
	Quantity float64 `json:"cantidad"`
	PriceUSD float64 `json:"precio_usd"`
}

// HistoricalTrade is a past buy/sell used to ground advice.
type HistoricalTrade struct {
	Date     string  `json:"fecha"`
	Asset    string  `json:"activo"`
	Quantity float64 `json:"cantidad"`
	Type     string  `json:"tipo"`
	PriceUSD float64 `json:"precio_usd"`
}

// DefaultPortfolio is used when no snapshot row exists for the user or the
// store cannot be reached.
func DefaultPortfolio() *PortfolioSnapshot {
	return &PortfolioSnapshot{
		OwnerName:      "Juan Pérez",
		RiskProfile:    "Moderado",
		Goal:           "Crecimiento moderado en 12-24 meses",
		TotalValue:     45679.92,
		Performance24h: 12.45,
		Distribution: []Allocation{
			{Name: "Bitcoin", Value: 45},
			{Name: "Ethereum", Value: 30},
			{Name: "Solana", Value: 15},
			{Name: "Other", Value: 10},
		},
		Holdings: map[string]Holding{
			"bitcoin":  {Quantity: 0.8, PriceUSD: 30000},
			"ethereum": {Quantity: 5, PriceUSD: 3200},
			"solana":   {Quantity: 10, PriceUSD: 100},
			"other":    {Quantity: 2000, PriceUSD: 1},
		},
		RecentTrades: []HistoricalTrade{
			{Date: "2025-10-10", Asset: "bitcoin", Quantity: 0.5, Type: "compra", PriceUSD: 25000},
			{Date: "2025-09-15", Asset: "ethereum", Quantity: 5, Type: "compra", PriceUSD: 3000},
			{Date: "2025-08-01", Asset: "stablecoins", Quantity: 9000, Type: "compra", PriceUSD: 1},
		},
	}
}
