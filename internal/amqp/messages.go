package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// HouseholdChangedMessage announces that one collection of a household was
// rewritten. Consumers reload the full snapshot, so the message carries no
// record data.
type HouseholdChangedMessage struct {
	Household  string    `json:"household"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewHouseholdChangedMessage(household, collection string) *HouseholdChangedMessage {
	return &HouseholdChangedMessage{
		Household:  household,
		Collection: collection,
		Timestamp:  time.Now(),
	}
}

func (m *HouseholdChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// HouseholdChangedMessageFromJSON decodes a message and rejects one without
// a household.
func HouseholdChangedMessageFromJSON(data []byte) (*HouseholdChangedMessage, error) {
	var msg HouseholdChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Household) == "" {
		return nil, fmt.Errorf("household changed message without household")
	}
	return &msg, nil
}
