package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(nil)

	uploadDocument(t, router, "owner-a", `{"document_name":"colors.txt","text":"The brand color palette is navy and gray."}`)
	uploadDocument(t, router, "owner-a", `{"document_name":"fonts.txt","text":"Headlines use Archivo Black."}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search",
		bytes.NewBufferString(`{"query":"what is the color palette"}`))
	req.Header.Set(OwnerHeader, "owner-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want only the color document's chunk", len(resp.Results))
	}
	if resp.Results[0].DocumentName != "colors.txt" {
		t.Errorf("top result from %q, want colors.txt", resp.Results[0].DocumentName)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search",
		bytes.NewBufferString(`{"query":"anything"}`))
	req.Header.Set(OwnerHeader, "owner-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Results == nil {
		t.Error("results should be an empty array, not null")
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}
}

func TestSearchValidation(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(`{"query":""}`))
	req.Header.Set(OwnerHeader, "owner-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(`{"query":"x"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing owner status = %d, want 400", rec.Code)
	}
}
