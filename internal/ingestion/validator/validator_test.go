package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    ingestion.IngestRequest
		fields []string
	}{
		{"valid", ingestion.IngestRequest{Name: "corpus/a.txt", Body: "the cat"}, nil},
		{"missing name", ingestion.IngestRequest{Body: "x"}, []string{"name"}},
		{"multi-line name", ingestion.IngestRequest{Name: "a\nb", Body: "x"}, []string{"name"}},
		{"blank body", ingestion.IngestRequest{Name: "a", Body: "  \n"}, []string{"body"}},
		{"oversized body", ingestion.IngestRequest{Name: "a", Body: strings.Repeat("x", maxBodyLength+1)}, []string{"body"}},
		{"both", ingestion.IngestRequest{}, []string{"body", "name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestRequest(&tt.req)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
			assert.Len(t, verr.Fields, len(tt.fields))
		})
	}
}
