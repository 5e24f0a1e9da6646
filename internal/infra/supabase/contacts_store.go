package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Contacts store: search, create
// ============================================================

var filterEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quoteFilterValue double-quotes v for a PostgREST logic filter so that
// reserved characters (, . : ( )) stay literal.
func quoteFilterValue(v string) string {
	return `"` + filterEscaper.Replace(v) + `"`
}

// SearchContacts matches query against name, email and phone (ilike).
// An empty query lists the first limit contacts by name.
func (c *Client) SearchContacts(ctx context.Context, query string, limit int) ([]domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SearchContacts")
	defer span.End()
	span.SetAttributes(attribute.String("contacts.query", query))

	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "name.asc")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	// "*" is the ilike wildcard; a literal one in the query would widen the match.
	if q := strings.Join(strings.Fields(strings.ReplaceAll(query, "*", " ")), " "); q != "" {
		v := quoteFilterValue("*" + q + "*")
		params.Set("or", fmt.Sprintf("(name.ilike.%[1]s,email.ilike.%[1]s,phone.ilike.%[1]s)", v))
	}

	var rows []domain.Contact
	if err := c.get(ctx, "contacts", "contacts?"+params.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateContact inserts c, generating its id when missing.
func (c *Client) CreateContact(ctx context.Context, contact *domain.Contact) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateContact")
	defer span.End()

	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	data := map[string]any{
		"id":    contact.ID,
		"name":  contact.Name,
		"email": nullable(contact.Email),
		"phone": nullable(contact.Phone),
	}
	if contact.UserID != "" {
		data["user_id"] = contact.UserID
	}
	if contact.WalletAddress != "" {
		data["wallet_address"] = contact.WalletAddress
	}

	body, err := c.post(ctx, "contacts", "contacts", data, "")
	if err != nil {
		return nil, err
	}

	var rows []domain.Contact
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	if len(rows) == 0 {
		if contact.CreatedAt.IsZero() {
			contact.CreatedAt = time.Now().UTC()
		}
		return contact, nil
	}
	return &rows[0], nil
}

// nullable maps "" to a JSON null.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
