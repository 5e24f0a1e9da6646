// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
)

// PriceOracle fetches spot prices from the public price API.
type PriceOracle interface {
	Quote(ctx context.Context, assetID, currency string) (*domain.PriceQuote, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ContactStore reads and writes saved contacts.
type ContactStore interface {
	// SearchContacts matches query case-insensitively against name, email
	// and phone, returning at most limit rows.
	SearchContacts(ctx context.Context, query string, limit int) ([]domain.Contact, error)
	CreateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error)
}

// ServiceStore lists the user's saved services.
type ServiceStore interface {
	ListSavedServices(ctx context.Context) ([]domain.SavedService, error)
}

// MovementStore reads and writes the transaction history.
type MovementStore interface {
	CreateMovement(ctx context.Context, m *domain.Movement) (*domain.Movement, error)
	ListMovements(ctx context.Context, userID string, limit int) ([]domain.Movement, error)
}

// DecisionStore records approve/reject decisions. RecordDecision returns
// *domain.ErrDuplicate when a decision already exists for the action id.
type DecisionStore interface {
	RecordDecision(ctx context.Context, d *domain.ActionDecision) error
}

// PortfolioStore loads the latest portfolio snapshot of a user.
type PortfolioStore interface {
	GetPortfolio(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error)
}

// RowStore is the full persistence surface of the managed backend.
// Implemented by the Supabase adapter and the direct Postgres store.
type RowStore interface {
	ContactStore
	ServiceStore
	MovementStore
	DecisionStore
	PortfolioStore
	Ping(ctx context.Context) error
}

// Transactor is implemented by row stores that can make several writes
// atomic. fn gets a store bound to the transaction; its error rolls back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx RowStore) error) error
}
