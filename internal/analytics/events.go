// Package analytics tracks search, spell and indexing events on Kafka and
// aggregates them into query statistics.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventSpell      EventType = "spell"
	EventIndexDoc   EventType = "index_document"
	EventCommit     EventType = "index_commit"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	QueryType    string    `json:"query_type"`
	Ranking      string    `json:"ranking,omitempty"`
	Terms        []string  `json:"terms"`
	TotalHits    int       `json:"total_hits"`
	Returned     int       `json:"returned"`
	Combinations int       `json:"combinations"`
	Truncated    bool      `json:"truncated,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

type SpellEvent struct {
	Type        EventType `json:"type"`
	Query       string    `json:"query"`
	Suggestions int       `json:"suggestions"`
	Top         string    `json:"top,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type       EventType `json:"type"`
	DocName    string    `json:"doc_name,omitempty"`
	DocID      int       `json:"doc_id"`
	TokenCount int       `json:"token_count"`
	SizeBytes  int       `json:"size_bytes"`
	Terms      int       `json:"terms,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Decode inspects the type tag of an encoded event and returns the matching
// *SearchEvent, *SpellEvent or *IndexEvent.
func Decode(value []byte) (any, error) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil, fmt.Errorf("decoding analytics event: %w", err)
	}
	var event any
	switch envelope.Type {
	case EventSearch, EventCacheHit, EventCacheMiss, EventZeroResult:
		event = &SearchEvent{}
	case EventSpell:
		event = &SpellEvent{}
	case EventIndexDoc, EventCommit:
		event = &IndexEvent{}
	default:
		return nil, fmt.Errorf("unknown analytics event type %q", envelope.Type)
	}
	if err := json.Unmarshal(value, event); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", envelope.Type, err)
	}
	return event, nil
}
