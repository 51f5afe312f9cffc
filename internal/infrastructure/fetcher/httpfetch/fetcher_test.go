package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/avoronov/bookqa/internal/core/domain"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	fetcher, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return fetcher
}

func TestFetchSpoolsEveryLocator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake body for " + r.URL.Path))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t)
	paths, err := fetcher.Fetch(context.Background(), []string{server.URL + "/one", server.URL + "/two"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 spooled files, got %d", len(paths))
	}
	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read spool file: %v", err)
		}
		if len(body) == 0 {
			t.Fatalf("spool file %s is empty", path)
		}
	}
}

func TestFetchSkipsFailingLocator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t)
	paths, err := fetcher.Fetch(context.Background(), []string{server.URL + "/missing", server.URL + "/ok"})
	if err != nil {
		t.Fatalf("one failing locator must not abort the fetch: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 spooled file, got %d", len(paths))
	}
}

func TestFetchFailsWhenAllLocatorsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), []string{server.URL + "/a", server.URL + "/b"})
	if !domain.IsKind(err, domain.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}
}

func TestFetchFailsWithNoLocators(t *testing.T) {
	fetcher := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed for empty locator set, got %v", err)
	}
}
