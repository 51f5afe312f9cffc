package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// Fetcher downloads source PDFs into a local spool directory. One spool file
// per locator slot, named book1.pdf, book2.pdf and so on.
type Fetcher struct {
	spoolDir   string
	httpClient *http.Client
}

func New(spoolDir string) (*Fetcher, error) {
	if spoolDir == "" {
		spoolDir = "./data/pdfs"
	}
	if err := os.MkdirAll(spoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Fetcher{
		spoolDir:   spoolDir,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Fetch downloads every locator it can. A locator that fails is logged and
// skipped; the document set degrades rather than aborts. Only when nothing
// could be fetched does the whole call fail.
func (f *Fetcher) Fetch(ctx context.Context, locators []string) ([]string, error) {
	paths := make([]string, 0, len(locators))
	var lastErr error
	for i, locator := range locators {
		path := filepath.Join(f.spoolDir, fmt.Sprintf("book%d.pdf", i+1))
		if err := f.download(ctx, locator, path); err != nil {
			slog.Warn("pdf_download_failed", "url", locator, "error", err)
			lastErr = err
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no document locators configured")
		}
		return nil, domain.WrapError(domain.ErrDownloadFailed, "fetch documents", lastErr)
	}
	return paths, nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status: %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write spool file: %w", err)
	}
	return nil
}
