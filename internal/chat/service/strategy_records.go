package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"
)

// ContactLimit caps the contacts rendered for a transfer.
const ContactLimit = 5

// NoContactsText tells the model to offer registering the recipient.
const NoContactsText = "No se encontraron contactos con ese nombre. Pregunta si desea registrar un nuevo contacto."

// ============================================================
// ContactStrategy (TRANSFER)
// ============================================================

// ContactStrategy looks up the transfer recipient named in the utterance.
type ContactStrategy struct {
	labelSet
	store port.ContactStore
}

// NewContactStrategy creates a ContactStrategy bound to TRANSFER.
func NewContactStrategy(store port.ContactStore) *ContactStrategy {
	return &ContactStrategy{labelSet: labels(domain.LabelTransfer), store: store}
}

func (s *ContactStrategy) Name() string { return "contacts" }

func (s *ContactStrategy) Assemble(ctx context.Context, in *AssembleInput) (string, error) {
	ctx, span := tracer.Start(ctx, "ContactStrategy.Assemble")
	defer span.End()

	candidate, ok := ExtractRecipientCandidate(in.Utterance)
	if !ok {
		return "", nil
	}

	contacts, err := s.store.SearchContacts(ctx, candidate, ContactLimit)
	if err != nil {
		return "", fmt.Errorf("search contacts: %w", err)
	}
	if len(contacts) == 0 {
		return NoContactsText, nil
	}

	var sb strings.Builder
	sb.WriteString("Contactos encontrados:\n")
	for i, c := range contacts {
		if i == ContactLimit {
			break
		}
		fmt.Fprintf(&sb, "- %s", c.Name)
		if c.Email != "" {
			fmt.Fprintf(&sb, " | email: %s", c.Email)
		}
		if c.Phone != "" {
			fmt.Fprintf(&sb, " | teléfono: %s", c.Phone)
		}
		if c.WalletAddress != "" {
			fmt.Fprintf(&sb, " | wallet: %s", c.WalletAddress)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// ============================================================
// SavedServicesStrategy (SERVICE_PAYMENT)
// ============================================================

// SavedServicesStrategy lists the services the user already pays.
type SavedServicesStrategy struct {
	labelSet
	store port.ServiceStore
}

// NewSavedServicesStrategy creates a SavedServicesStrategy bound to SERVICE_PAYMENT.
func NewSavedServicesStrategy(store port.ServiceStore) *SavedServicesStrategy {
	return &SavedServicesStrategy{labelSet: labels(domain.LabelServicePayment), store: store}
}

func (s *SavedServicesStrategy) Name() string { return "saved_services" }

func (s *SavedServicesStrategy) Assemble(ctx context.Context, _ *AssembleInput) (string, error) {
	ctx, span := tracer.Start(ctx, "SavedServicesStrategy.Assemble")
	defer span.End()

	services, err := s.store.ListSavedServices(ctx)
	if err != nil {
		return "", fmt.Errorf("list saved services: %w", err)
	}
	if len(services) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("Servicios guardados:\n")
	for _, svc := range services {
		fmt.Fprintf(&sb, "- %s", svc.Name)
		if svc.Category != "" {
			fmt.Fprintf(&sb, " (%s)", svc.Category)
		}
		if svc.AccountNumber != "" {
			fmt.Fprintf(&sb, " | cuenta: %s", svc.AccountNumber)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// ============================================================
// MovementsStrategy (PERSONAL_ANALYSIS, GOAL)
// ============================================================

// MovementLimit is how many recent movements are shown for an analysis.
const MovementLimit = 10

// MovementsStrategy renders the user's recent transaction history.
type MovementsStrategy struct {
	labelSet
	store port.MovementStore
}

// NewMovementsStrategy creates a MovementsStrategy bound to the personal
// analysis and goal labels.
func NewMovementsStrategy(store port.MovementStore) *MovementsStrategy {
	return &MovementsStrategy{
		labelSet: labels(domain.LabelPersonalAnalysis, domain.LabelGoal),
		store:    store,
	}
}

func (s *MovementsStrategy) Name() string { return "movements" }

func (s *MovementsStrategy) Assemble(ctx context.Context, in *AssembleInput) (string, error) {
	ctx, span := tracer.Start(ctx, "MovementsStrategy.Assemble")
	defer span.End()

	movements, err := s.store.ListMovements(ctx, in.UserID, MovementLimit)
	if err != nil {
		return "", fmt.Errorf("list movements: %w", err)
	}
	if len(movements) == 0 {
		return "El usuario aún no tiene movimientos registrados.", nil
	}

	var sb strings.Builder
	sb.WriteString("Movimientos recientes del usuario:\n")
	for _, m := range movements {
		fmt.Fprintf(&sb, "- %s %s %s %s",
			m.CreatedAt.Format("2006-01-02"), m.Type, m.Amount, m.Token)
		switch {
		case m.RecipientName != "":
			fmt.Fprintf(&sb, " → %s", m.RecipientName)
		case m.ServiceName != "":
			fmt.Fprintf(&sb, " → %s", m.ServiceName)
		}
		if m.Description != "" {
			fmt.Fprintf(&sb, " (%s)", m.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
