package events

import (
	"encoding/json"
	"time"
)

// Event types the UI subscribes to.
const (
	TypePing              = "ping"
	TypeCompetitorCreated = "competitor_created"
	TypeCompetitorUpdated = "competitor_updated"
	TypeCompetitorDeleted = "competitor_deleted"
	TypeSummariesRefresh  = "summaries_refreshed"
	TypePreferencesSaved  = "preferences_saved"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   1,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
