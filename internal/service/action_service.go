// Package service holds the non-chat use cases of the BFA: approving or
// rejecting proposals, market conversions and the user's history.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chatdomain "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// ============================================================
// ActionService: approval flow
// ============================================================
//
// A proposal lives only inside one chat response until the user decides.
// The decision is recorded first: action_decisions.action_id is unique, so
// a second approve/reject for the same id fails with ErrDuplicate before
// anything else is written. Stores implementing port.Transactor record the
// decision and its side effect in one transaction, so a failed write leaves
// the action open for a retry.

// ActionService turns approved proposals into persisted rows.
type ActionService struct {
	store   port.RowStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewActionService creates an ActionService. A nil store makes every call
// fail with *domain.ErrUnavailable.
func NewActionService(store port.RowStore, metrics *observability.Metrics, logger *zap.Logger) *ActionService {
	return &ActionService{store: store, metrics: metrics, logger: logger}
}

// Approve records the approval of action and executes its side effect:
// contact_register creates a contact, every other type writes a completed
// movement.
func (s *ActionService) Approve(ctx context.Context, userID string, action *chatdomain.ProposedAction) (*domain.ActionReceipt, error) {
	ctx, span := tracer.Start(ctx, "ActionService.Approve")
	defer span.End()

	if s.store == nil {
		return nil, &domain.ErrUnavailable{Feature: "approvals"}
	}
	if err := validateAction(action); err != nil {
		return nil, err
	}
	actionID := string(action.ID)
	span.SetAttributes(
		attribute.String("action.id", actionID),
		attribute.String("action.type", string(action.Type)),
	)

	var receipt *domain.ActionReceipt
	write := func(ctx context.Context, store port.RowStore) error {
		if err := store.RecordDecision(ctx, &domain.ActionDecision{
			ActionID:   actionID,
			UserID:     userID,
			ActionType: string(action.Type),
			Decision:   domain.DecisionApproved,
		}); err != nil {
			return s.decisionError(actionID, err)
		}
		r, err := s.execute(ctx, store, userID, action)
		receipt = r
		return err
	}

	var err error
	if tx, ok := s.store.(port.Transactor); ok {
		err = tx.InTx(ctx, write)
	} else {
		err = write(ctx, s.store)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("action approved",
		zap.String("action_id", actionID),
		zap.String("action_type", string(action.Type)),
		zap.String("user_id", userID),
	)
	return receipt, nil
}

// execute writes the side effect of an approved action: a contact for
// contact_register, a completed movement for everything else.
func (s *ActionService) execute(ctx context.Context, store port.RowStore, userID string, action *chatdomain.ProposedAction) (*domain.ActionReceipt, error) {
	actionID := string(action.ID)
	receipt := &domain.ActionReceipt{ActionID: actionID, Decision: domain.DecisionApproved}

	if action.Type == chatdomain.ActionContactRegister {
		contact, err := store.CreateContact(ctx, &domain.Contact{
			UserID:        userID,
			Name:          action.Field("name"),
			Email:         action.Field("email"),
			Phone:         action.Field("phone"),
			WalletAddress: action.Field("wallet_address"),
		})
		if err != nil {
			s.logger.Error("approved contact not saved",
				zap.String("action_id", actionID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("create contact: %w", err)
		}
		receipt.Contact = contact
		return receipt, nil
	}

	movement, err := store.CreateMovement(ctx, movementFor(userID, action))
	if err != nil {
		s.logger.Error("approved movement not saved",
			zap.String("action_id", actionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create movement: %w", err)
	}
	receipt.Movement = movement
	return receipt, nil
}

// ApproveTask approves a task proposed by the investment advisor.
func (s *ActionService) ApproveTask(ctx context.Context, userID string, task *chatdomain.ProposedTask) (*domain.ActionReceipt, error) {
	if task == nil {
		return nil, &domain.ErrValidation{Field: "task", Message: "is required"}
	}
	return s.Approve(ctx, userID, task.AsAction())
}

// Reject records that the user dismissed the proposal. Nothing else is written.
func (s *ActionService) Reject(ctx context.Context, userID, actionID, actionType string) (*domain.ActionReceipt, error) {
	ctx, span := tracer.Start(ctx, "ActionService.Reject")
	defer span.End()
	span.SetAttributes(attribute.String("action.id", actionID))

	if s.store == nil {
		return nil, &domain.ErrUnavailable{Feature: "approvals"}
	}
	actionID = strings.TrimSpace(actionID)
	if actionID == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "is required"}
	}

	if err := s.store.RecordDecision(ctx, &domain.ActionDecision{
		ActionID:   actionID,
		UserID:     userID,
		ActionType: actionType,
		Decision:   domain.DecisionRejected,
	}); err != nil {
		return nil, s.decisionError(actionID, err)
	}

	s.logger.Info("action rejected", zap.String("action_id", actionID), zap.String("user_id", userID))
	return &domain.ActionReceipt{ActionID: actionID, Decision: domain.DecisionRejected}, nil
}

func (s *ActionService) decisionError(actionID string, err error) error {
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		s.logger.Warn("decision already recorded", zap.String("action_id", actionID))
		return err
	}
	s.metrics.IncrExternalError("decisions")
	return fmt.Errorf("record decision: %w", err)
}

// validateAction checks the fields each action type needs to be executed.
func validateAction(a *chatdomain.ProposedAction) error {
	if a == nil {
		return &domain.ErrValidation{Field: "action", Message: "is required"}
	}
	if strings.TrimSpace(string(a.ID)) == "" {
		return &domain.ErrValidation{Field: "id", Message: "is required"}
	}
	if !a.Type.Valid() {
		return &domain.ErrValidation{Field: "type", Message: fmt.Sprintf("unknown action type %q", a.Type)}
	}

	var required []string
	switch a.Type {
	case chatdomain.ActionContactRegister:
		required = []string{"name"}
	case chatdomain.ActionServicePayment:
		required = []string{"service_name", "amount", "token"}
	case chatdomain.ActionTransfer:
		required = []string{"amount", "token", "recipient_name"}
	default:
		required = []string{"amount", "token"}
	}
	for _, key := range required {
		if strings.TrimSpace(a.Field(key)) == "" {
			return &domain.ErrValidation{Field: "data." + key, Message: "is required"}
		}
	}
	return nil
}

func movementFor(userID string, a *chatdomain.ProposedAction) *domain.Movement {
	return &domain.Movement{
		UserID:         userID,
		ActionID:       string(a.ID),
		Type:           string(a.Type),
		Amount:         a.Field("amount"),
		Token:          strings.ToUpper(a.Field("token")),
		Network:        a.Field("network"),
		RecipientName:  a.Field("recipient_name"),
		RecipientEmail: a.Field("recipient_email"),
		ServiceName:    a.Field("service_name"),
		Description:    a.Field("description"),
		Status:         domain.MovementStatusCompleted,
	}
}
