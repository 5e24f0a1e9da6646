package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Contacts
// ============================================================

// likePattern escapes LIKE metacharacters in q and wraps it in %.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

const contactColumns = `id, COALESCE(user_id, ''), name, COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(wallet_address, ''), created_at`

func (s *Store) SearchContacts(ctx context.Context, query string, limit int) ([]domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Postgres.SearchContacts")
	defer span.End()
	span.SetAttributes(attribute.String("contacts.query", query))

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT `+contactColumns+` FROM contacts
		WHERE $1 = '' OR name ILIKE $2 OR email ILIKE $2 OR phone ILIKE $2
		ORDER BY name LIMIT $3`,
		strings.TrimSpace(query), likePattern(strings.TrimSpace(query)), limit)
	if err != nil {
		return nil, wrap("contacts", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.WalletAddress, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, wrap("contacts", rows.Err())
}

func (s *Store) CreateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateContact")
	defer span.End()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := s.db.QueryRow(ctx, `INSERT INTO contacts (id, user_id, name, email, phone, wallet_address)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		RETURNING created_at`,
		c.ID, c.UserID, c.Name, c.Email, c.Phone, c.WalletAddress,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, wrap("contacts", err)
	}
	return c, nil
}

// ============================================================
// Saved services
// ============================================================

func (s *Store) ListSavedServices(ctx context.Context) ([]domain.SavedService, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListSavedServices")
	defer span.End()

	rows, err := s.db.Query(ctx, `SELECT id, COALESCE(user_id, ''), name, COALESCE(category, ''),
		COALESCE(account_number, ''), created_at FROM saved_services ORDER BY name`)
	if err != nil {
		return nil, wrap("saved_services", err)
	}
	defer rows.Close()

	var out []domain.SavedService
	for rows.Next() {
		var svc domain.SavedService
		if err := rows.Scan(&svc.ID, &svc.UserID, &svc.Name, &svc.Category, &svc.AccountNumber, &svc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved service: %w", err)
		}
		out = append(out, svc)
	}
	return out, wrap("saved_services", rows.Err())
}

// ============================================================
// Movements
// ============================================================

func (s *Store) CreateMovement(ctx context.Context, m *domain.Movement) (*domain.Movement, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateMovement")
	defer span.End()
	span.SetAttributes(attribute.String("movement.type", m.Type))

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MovementStatusCompleted
	}
	err := s.db.QueryRow(ctx, `INSERT INTO movements (id, user_id, action_id, type, amount, token, network,
			recipient_name, recipient_email, service_name, description, status)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''),
			NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12)
		RETURNING created_at`,
		m.ID, m.UserID, m.ActionID, m.Type, m.Amount, m.Token, m.Network,
		m.RecipientName, m.RecipientEmail, m.ServiceName, m.Description, m.Status,
	).Scan(&m.CreatedAt)
	if err != nil {
		return nil, wrap("movements", err)
	}
	return m, nil
}

func (s *Store) ListMovements(ctx context.Context, userID string, limit int) ([]domain.Movement, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListMovements")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT id, COALESCE(user_id, ''), COALESCE(action_id, ''), type, amount, token,
			COALESCE(network, ''), COALESCE(recipient_name, ''), COALESCE(recipient_email, ''),
			COALESCE(service_name, ''), COALESCE(description, ''), status, created_at
		FROM movements
		WHERE $1 = '' OR user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, wrap("movements", err)
	}
	defer rows.Close()

	var out []domain.Movement
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(&m.ID, &m.UserID, &m.ActionID, &m.Type, &m.Amount, &m.Token, &m.Network,
			&m.RecipientName, &m.RecipientEmail, &m.ServiceName, &m.Description, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, wrap("movements", rows.Err())
}

// ============================================================
// Decisions
// ============================================================

// RecordDecision inserts the decision; a second one for the same action id
// touches no row and is reported as *domain.ErrDuplicate.
func (s *Store) RecordDecision(ctx context.Context, d *domain.ActionDecision) error {
	ctx, span := tracer.Start(ctx, "Postgres.RecordDecision")
	defer span.End()
	span.SetAttributes(attribute.String("action.id", d.ActionID))

	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now().UTC()
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO action_decisions (action_id, user_id, action_type, decision, decided_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		ON CONFLICT (action_id) DO NOTHING`,
		d.ActionID, d.UserID, d.ActionType, d.Decision, d.DecidedAt)
	if err != nil {
		return wrap("action_decisions", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrDuplicate{Key: d.ActionID}
	}
	return nil
}

// ============================================================
// Portfolio
// ============================================================

func (s *Store) GetPortfolio(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetPortfolio")
	defer span.End()

	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT snapshot FROM portfolio_snapshots
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "portfolio", ID: userID}
	}
	if err != nil {
		return nil, wrap("portfolio_snapshots", err)
	}

	var p domain.PortfolioSnapshot
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode portfolio snapshot: %w", err)
	}
	return &p, nil
}

func wrap(table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: "postgres/" + table}
	}
	return &domain.ErrExternalService{Service: "postgres/" + table, Err: err}
}
