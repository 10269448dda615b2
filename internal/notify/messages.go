// Package notify broadcasts cache invalidations between replicas over AMQP.
package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// InvalidationMessage asks every replica to drop a cached table.
// An empty SourceURL means every cached table.
type InvalidationMessage struct {
	Timestamp time.Time `json:"timestamp"`
	SourceURL string    `json:"source_url"`
	Origin    string    `json:"origin,omitempty"`
}

// NewInvalidationMessage creates a message stamped with the current time.
func NewInvalidationMessage(sourceURL, origin string) *InvalidationMessage {
	return &InvalidationMessage{
		SourceURL: sourceURL,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvalidationMessageFromJSON decodes a message body.
func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode invalidation message: %w", err)
	}
	return &msg, nil
}
