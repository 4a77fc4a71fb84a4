// Package approval tracks human-confirmation interactions for ASSIST
// decisions and guarantees each one is applied at most once.
package approval

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// State of one approval interaction.
//
//	awaiting_approval -> approved | edited | rejected -> applied | discarded
//
// applied and discarded are terminal; once reached, no further transitions
// are accepted. applied is only reachable from approved or edited. A
// rejected interaction, and any claimed interaction whose receipt was
// already resolved elsewhere, ends discarded.
type State string

const (
	StateAwaitingApproval State = "awaiting_approval"
	StateApproved         State = "approved"
	StateEdited           State = "edited"
	StateRejected         State = "rejected"
	StateApplied          State = "applied"
	StateDiscarded        State = "discarded"
)

// Terminal reports whether the state ends the interaction.
func (s State) Terminal() bool {
	return s == StateApplied || s == StateDiscarded
}

// Action is the human's answer, parsed once at the boundary.
type Action string

const (
	ActionApprove Action = "approve"
	ActionEdit    Action = "edit"
	ActionReject  Action = "reject"
)

// ParseAction maps wire text to an Action. Anything unrecognized becomes
// ActionReject: an action we do not understand must never apply anything.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return ActionApprove
	case "edit":
		return ActionEdit
	default:
		return ActionReject
	}
}

// Request is one outstanding approval, keyed by the interaction id embedded
// in the notification sent to the human.
type Request struct {
	InteractionID   uuid.UUID
	Fingerprint     receipt.Fingerprint
	ReceiptID       string
	TransactionKind ledger.Kind
	TransactionID   string
	Counterparty    string
	Vendor          string
	Date            time.Time
	Amount          int64
	Score           float64
	State           State
	CreatedAt       time.Time
}

// Event is a parsed, validated approval delivery.
type Event struct {
	InteractionID uuid.UUID
	Action        Action

	// Overrides, only meaningful for ActionEdit.
	Amount *int64
	Date   *time.Time
	Vendor *string
}

// Payload is the wire shape the notification collaborator delivers.
type Payload struct {
	InteractionID string  `json:"interaction_id"`
	Action        string  `json:"action"`
	Amount        *int64  `json:"amount,omitempty"`
	Date          *string `json:"date,omitempty"`
	Vendor        *string `json:"vendor,omitempty"`
}

// ErrInvalidEvent marks a payload that failed validation. The interaction is
// left untouched so a corrected delivery can still resolve it.
var ErrInvalidEvent = errors.New("approval: invalid event payload")

// ParseEvent validates the wire payload and produces an Event. Unknown
// actions fail closed to reject; edited fields are validated here, before
// anything can be applied.
func ParseEvent(p Payload) (Event, error) {
	id, err := uuid.Parse(p.InteractionID)
	if err != nil {
		return Event{}, fmt.Errorf("%w: bad interaction_id %q", ErrInvalidEvent, p.InteractionID)
	}

	ev := Event{InteractionID: id, Action: ParseAction(p.Action)}

	if ev.Action != ActionEdit {
		return ev, nil
	}

	if p.Amount != nil {
		if *p.Amount == 0 {
			return Event{}, fmt.Errorf("%w: edited amount must be non-zero", ErrInvalidEvent)
		}

		ev.Amount = p.Amount
	}

	if p.Date != nil {
		d, err := time.Parse(time.DateOnly, *p.Date)
		if err != nil {
			return Event{}, fmt.Errorf("%w: edited date %q is not YYYY-MM-DD", ErrInvalidEvent, *p.Date)
		}

		ev.Date = &d
	}

	if p.Vendor != nil {
		v := receipt.NormalizeVendor(*p.Vendor)
		if v == "" {
			return Event{}, fmt.Errorf("%w: edited vendor is empty", ErrInvalidEvent)
		}

		ev.Vendor = p.Vendor
	}

	if ev.Amount == nil && ev.Date == nil && ev.Vendor == nil {
		return Event{}, fmt.Errorf("%w: edit carries no overrides", ErrInvalidEvent)
	}

	return ev, nil
}
