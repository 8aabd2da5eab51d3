package amqp

import (
	"encoding/json"
	"time"
)

// RecommendMessage asks the worker to compute and store reward
// recommendations for one saved spending month. It carries only the row ID;
// the worker fetches the full spending vector from the database.
type RecommendMessage struct {
	SpendingID int64     `json:"spending_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRecommendMessage creates a recommendation request for a spending row
func NewRecommendMessage(spendingID int64) *RecommendMessage {
	return &RecommendMessage{
		SpendingID: spendingID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecommendMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecommendMessageFromJSON creates a message from JSON bytes
func RecommendMessageFromJSON(data []byte) (*RecommendMessage, error) {
	var msg RecommendMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
