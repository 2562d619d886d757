package alerting

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockpulse/internal/alert"
)

// Event is the JSON document published to message brokers.
type Event struct {
	ID          string              `json:"id"`
	Owner       string              `json:"owner"`
	Symbol      string              `json:"symbol"`
	AlertType   alert.AlertType     `json:"alert_type"`
	Price       decimal.Decimal     `json:"price"`
	ChangePct   decimal.Decimal     `json:"change_pct"`
	Volume      int64               `json:"volume"`
	Target      decimal.Decimal     `json:"target"`
	DistancePct decimal.NullDecimal `json:"distance_pct"`
	Message     string              `json:"message"`
	TriggeredAt time.Time           `json:"triggered_at"`
}

func newEvent(note Notification) Event {
	return Event{
		ID:          uuid.NewString(),
		Owner:       note.Rule.Owner,
		Symbol:      note.Rule.Symbol,
		AlertType:   note.Rule.Type,
		Price:       note.Quote.Price,
		ChangePct:   note.Quote.ChangePct,
		Volume:      note.Quote.Volume,
		Target:      note.Result.Target,
		DistancePct: note.Result.DistancePct,
		Message:     note.Message,
		TriggeredAt: note.At.UTC(),
	}
}

func (e Event) marshal() ([]byte, error) {
	return json.Marshal(e)
}
