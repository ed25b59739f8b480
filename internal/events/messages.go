package events

import (
	"encoding/json"
	"time"

	"github.com/mmynk/expensekey/internal/models"
)

// ActivityMessage is one activity entry as published to the broker.
type ActivityMessage struct {
	GroupID     string               `json:"groupId"`
	Entry       models.ActivityEntry `json:"entry"`
	PublishedAt time.Time            `json:"publishedAt"`
}

func NewActivityMessage(groupID string, entry models.ActivityEntry) ActivityMessage {
	return ActivityMessage{
		GroupID:     groupID,
		Entry:       entry,
		PublishedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes a message published by AMQPPublisher.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
