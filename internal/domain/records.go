package domain

import "time"

// ============================================================
// Persisted rows (managed backend tables)
// ============================================================

// Contact is a saved recipient. Searched by name, email or phone when the
// user asks for a transfer.
type Contact struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SavedService is a utility/service the user pays regularly (luz, agua, internet).
type SavedService struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	AccountNumber string    `json:"account_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Movement types written on approval.
const (
	MovementTransfer       = "transfer"
	MovementServicePayment = "service_payment"
	MovementBuy            = "buy"
	MovementSell           = "sell"
	MovementStake          = "stake"
)

// MovementStatusCompleted is the only status the approval flow writes.
const MovementStatusCompleted = "completed"

// Movement is one entry of the user's transaction history.
// Amount is kept as text: it comes verbatim from an approved proposal.
type Movement struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	ActionID       string    `json:"action_id,omitempty"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	Token          string    `json:"token"`
	Network        string    `json:"network,omitempty"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	RecipientEmail string    `json:"recipient_email,omitempty"`
	ServiceName    string    `json:"service_name,omitempty"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Decision values recorded in action_decisions.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ActionDecision records the human decision on a proposed action or task.
// ActionID is unique: the first decision wins.
type ActionDecision struct {
	ActionID   string    `json:"action_id"`
	UserID     string    `json:"user_id,omitempty"`
	ActionType string    `json:"action_type"`
	Decision   string    `json:"decision"`
	DecidedAt  time.Time `json:"decided_at"`
}

// ActionReceipt is returned by the approve/reject endpoints.
type ActionReceipt struct {
	ActionID string    `json:"actionId"`
	Decision string    `json:"decision"`
	Movement *Movement `json:"movement,omitempty"`
	Contact  *Contact  `json:"contact,omitempty"`
}
