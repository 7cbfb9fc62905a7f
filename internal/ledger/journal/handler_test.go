package journal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, h *Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.Post(rec, req)
	return rec
}

func postBody(docKind string, date time.Time) map[string]any {
	return map[string]any{
		"company_id":     1,
		"date":           date.Format(time.RFC3339),
		"reference_id":   uuid.New().String(),
		"reference_type": "MANUAL",
		"doc_kind":       docKind,
		"legs": []map[string]any{
			{"account_id": 10, "debit": "100"},
			{"account_id": 20, "credit": "100"},
		},
	}
}

func TestPostHandlerAcceptsManualEntry(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(slog.Default(), newTestService(repo))

	rec := postJSON(t, h, postBody("", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.entries, 2)
	require.Equal(t, DocKindManual, repo.entries[0].DocKind)
}

func TestPostHandlerRejectsUnknownDocKind(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(slog.Default(), newTestService(repo))

	rec := postJSON(t, h, postBody("SPLINES", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, repo.entries)
}

func TestPostHandlerRejectsReservedDocKinds(t *testing.T) {
	// A caller claiming a fiscal close kind would inherit its period lock
	// bypass, so the closing kinds stay reserved for the event consumer.
	repo := newFakeRepo()
	repo.closedPeriods = []timeRange{{
		from: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		to:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}}
	h := NewHandler(slog.Default(), newTestService(repo))

	for _, kind := range []string{"FISCAL_CLOSING", "FISCAL_OPENING"} {
		rec := postJSON(t, h, postBody(kind, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
		require.Equal(t, http.StatusBadRequest, rec.Code, "doc_kind %s must be rejected", kind)
	}
	require.Empty(t, repo.entries, "nothing may land in the closed period")
}

func TestPostHandlerRejectsClosedPeriod(t *testing.T) {
	repo := newFakeRepo()
	repo.closedPeriods = []timeRange{{
		from: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		to:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}}
	h := NewHandler(slog.Default(), newTestService(repo))

	rec := postJSON(t, h, postBody("MANUAL", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, repo.entries)
}

func TestPostHandlerDuplicateReturnsOK(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(slog.Default(), newTestService(repo))

	body := postBody("MANUAL", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	require.Equal(t, http.StatusCreated, postJSON(t, h, body).Code)
	require.Equal(t, http.StatusOK, postJSON(t, h, body).Code)
	require.Len(t, repo.entries, 2)
}
