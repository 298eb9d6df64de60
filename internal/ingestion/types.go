// Package ingestion defines the request/response types and Kafka event schema
// of the document ingestion pipeline.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
type IngestRequest struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

type IngestResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// IngestEvent is the Kafka payload the indexer builds from. Documents are
// identified by Name; the indexer assigns document IDs in consumption order.
type IngestEvent struct {
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	IngestedAt time.Time `json:"ingested_at"`
}
