package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"financas/internal/core"
)

// ChangeOp names the mutation that produced a change event.
type ChangeOp string

const (
	OpCreated  ChangeOp = "created"
	OpUpdated  ChangeOp = "updated"
	OpDeleted  ChangeOp = "deleted"
	OpPaid     ChangeOp = "paid"
	OpCloned   ChangeOp = "cloned"
	OpImported ChangeOp = "imported"
)

const monthLayout = "2006-01"

var ErrMalformedMessage = errors.New("malformed message")

// TransactionsChangedMessage tells consumers which months must be reloaded.
// It carries ids only; consumers read the rows from storage.
type TransactionsChangedMessage struct {
	Op        ChangeOp  `json:"op"`
	IDs       []string  `json:"ids,omitempty"`
	Months    []string  `json:"months"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionsChangedMessage builds a message for the months containing
// dates, deduplicated and sorted.
func NewTransactionsChangedMessage(op ChangeOp, ids []string, dates ...core.Date) *TransactionsChangedMessage {
	months := make([]string, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		months = append(months, d.Format(monthLayout))
	}
	slices.Sort(months)
	return &TransactionsChangedMessage{
		Op:        op,
		IDs:       ids,
		Months:    slices.Compact(months),
		Timestamp: time.Now().UTC(),
	}
}

// MonthDates returns the first day of every affected month.
func (m *TransactionsChangedMessage) MonthDates() ([]core.Date, error) {
	out := make([]core.Date, 0, len(m.Months))
	for _, s := range m.Months {
		t, err := time.Parse(monthLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%w: month %q", ErrMalformedMessage, s)
		}
		out = append(out, core.DateOf(t))
	}
	return out, nil
}

func (m *TransactionsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionsChangedMessageFromJSON decodes and validates a message body.
func TransactionsChangedMessageFromJSON(data []byte) (*TransactionsChangedMessage, error) {
	var msg TransactionsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Op == "" {
		return nil, fmt.Errorf("%w: missing op", ErrMalformedMessage)
	}
	if _, err := msg.MonthDates(); err != nil {
		return nil, err
	}
	return &msg, nil
}
