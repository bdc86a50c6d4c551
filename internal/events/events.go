// Package events publishes budget lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CycleClosed is emitted once per budget cycle, after its rollover committed.
type CycleClosed struct {
	CycleID   string          `json:"cycle_id"`
	UserID    string          `json:"user_id"`
	Period    string          `json:"period"`
	Amount    decimal.Decimal `json:"amount"`
	Spent     decimal.Decimal `json:"spent"`
	Credited  decimal.Decimal `json:"credited"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	ClosedAt  time.Time       `json:"closed_at"`
}

// ToJSON encodes the event body.
func (e *CycleClosed) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// CycleClosedFromJSON decodes an event body.
func CycleClosedFromJSON(data []byte) (*CycleClosed, error) {
	var e CycleClosed
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	PublishCycleClosed(ctx context.Context, event *CycleClosed) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishCycleClosed(context.Context, *CycleClosed) error { return nil }

func (NopPublisher) Close() error { return nil }
