package ws

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
)

// Publisher adapts the Hub to the order services' notifier interface.
// Payloads are marshaled here so services never see wire framing.
type Publisher struct {
	hub *Hub
}

// NewPublisher creates a Publisher backed by the given hub.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// Publish broadcasts an event to the restaurant's room. A payload that
// fails to marshal is logged and dropped; event delivery is best effort
// and never fails the originating request.
func (p *Publisher) Publish(restaurantID uuid.UUID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", event, err)
		return
	}
	p.hub.BroadcastToRestaurant(restaurantID, Event{Type: event, Payload: raw})
}
