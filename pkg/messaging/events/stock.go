package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/google/uuid"
)

// StockChangedEvent is published after every authoritative per-size stock change.
// Source identifies the publishing instance so it can ignore its own events.
type StockChangedEvent struct {
	ProductID  uuid.UUID `json:"product_id"`
	Size       string    `json:"size"`
	Delta      int32     `json:"delta"`
	Available  int32     `json:"available"`
	TotalStock int32     `json:"total_stock"`
	Version    int32     `json:"version"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e StockChangedEvent) Subject() string {
	return messaging.StockChangedSubject
}

func (e StockChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// ParseStockChanged decodes a StockChangedEvent payload.
func ParseStockChanged(data []byte) (StockChangedEvent, error) {
	var e StockChangedEvent
	err := json.Unmarshal(data, &e)
	return e, err
}
