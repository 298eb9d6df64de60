// Package validator checks ingestion requests and reports per-field errors.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion"
)

const (
	maxNameLength = 1024
	maxBodyLength = 1 << 20
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest enforces the limits of the docinfo file: a document
// name is a single non-empty line, and the body must hold some text.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		errs["name"] = "name is required"
	case len(name) > maxNameLength:
		errs["name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
	case strings.ContainsAny(req.Name, "\r\n"):
		errs["name"] = "name must not contain line breaks"
	}

	body := strings.TrimSpace(req.Body)
	switch {
	case body == "":
		errs["body"] = "body is required and must not be empty"
	case len(req.Body) > maxBodyLength:
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", maxBodyLength)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
