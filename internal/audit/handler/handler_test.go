package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homehelp/internal/audit"
	"homehelp/internal/audit/handler"
	"homehelp/internal/platform/logger"
)

func setup(t *testing.T) (*audit.InMemoryStore, http.Handler) {
	t.Helper()
	store := audit.NewInMemoryStore()
	h := handler.New(store, logger.New())
	r := chi.NewRouter()
	h.Register(r)
	return store, r
}

func seed(t *testing.T, store *audit.InMemoryStore, kind audit.Kind, subject string, succeeded bool) {
	t.Helper()
	entry := audit.NewEntry(kind)
	entry.SubjectID = subject
	entry.Succeeded = succeeded
	require.NoError(t, store.Insert(context.Background(), entry))
}

func TestHandleListReturnsPage(t *testing.T) {
	store, router := setup(t)
	seed(t, store, audit.KindToken, "", true)
	seed(t, store, audit.KindOTPRequest, "XXXXXXXX9012", true)
	seed(t, store, audit.KindOTPVerify, "XXXXXXXX9012", false)

	req := httptest.NewRequest(http.MethodGet, "/audit/entries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Entries, 3)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 50, resp.Limit)
}

func TestHandleListFilters(t *testing.T) {
	store, router := setup(t)
	seed(t, store, audit.KindOTPRequest, "XXXXXXXX9012", true)
	seed(t, store, audit.KindOTPVerify, "XXXXXXXX9012", false)
	seed(t, store, audit.KindOTPRequest, "XXXXXXXX3456", true)

	req := httptest.NewRequest(http.MethodGet, "/audit/entries?subject_id=XXXXXXXX9012&succeeded=false", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, audit.KindOTPVerify, resp.Entries[0].Kind)
}

func TestHandleListRejectsBadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown kind", "?kind=bogus"},
		{"bad succeeded", "?succeeded=maybe"},
		{"negative limit", "?limit=-1"},
		{"negative offset", "?offset=-5"},
	}

	_, router := setup(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/audit/entries"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleListCapsLimit(t *testing.T) {
	_, router := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/audit/entries?limit=5000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Limit)
}
