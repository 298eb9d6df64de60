package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type stubIngester struct {
	got *ingestion.IngestRequest
	err error
}

func (s *stubIngester) Ingest(_ context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := validator.ValidateIngestRequest(req); err != nil {
		return nil, err
	}
	s.got = req
	return &ingestion.IngestResponse{Name: req.Name, Status: "QUEUED"}, nil
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(body)))
	return rec
}

func TestIngestAccepted(t *testing.T) {
	stub := &stubIngester{}
	rec := post(New(stub), `{"name":"a.txt","body":"the cat"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"name":"a.txt","status":"QUEUED"}`, rec.Body.String())
	assert.Equal(t, "the cat", stub.got.Body)
}

func TestIngestRejectsBadInput(t *testing.T) {
	h := New(&stubIngester{})
	assert.Equal(t, http.StatusBadRequest, post(h, `{`).Code)

	rec := post(h, `{"name":"","body":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
}

func TestIngestMapsBrokerFailure(t *testing.T) {
	h := New(&stubIngester{err: apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "down")})
	assert.Equal(t, http.StatusServiceUnavailable, post(h, `{"name":"a","body":"b"}`).Code)
}
