package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/logging"
	"compliscan/internal/scanerr"
)

const maxBodyBytes = 10 << 20 // 10MB, generous ceiling for an imprint/privacy page

// StaticFetcher performs the unrendered HTTP fetch path (spec §4.B).
type StaticFetcher struct {
	cfg    config.FetchConfig
	client *http.Client
}

func NewStaticFetcher(cfg config.FetchConfig) *StaticFetcher {
	return &StaticFetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout(),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
				}
				return nil
			},
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

// Fetch retrieves targetURL once, retrying a single time with jittered
// exponential backoff on a transport-level failure (DNS, connection
// refused, TLS handshake) — a non-2xx HTTP response is not retried, it
// becomes a synthetic critical issue downstream (spec §8 scenario S1).
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) (*Document, error) {
	timer := logging.StartTimer(logging.CategoryFetch, "static_fetch")
	defer timer.Stop()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			backoff := f.cfg.RetryBase() * time.Duration(1<<attempt)
			jitter := time.Duration(rand.Int63n(int64(f.cfg.RetryBase())))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return nil, scanerr.CancelledErr()
			}
			logging.FetchDebug("retrying fetch of %s after transport error: %v", targetURL, lastErr)
		}

		doc, err := f.fetchOnce(ctx, targetURL)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, scanerr.CancelledErr()
		}
		if scanerr.Is(err, scanerr.InvalidInput) {
			return nil, err
		}
		lastErr = err
	}
	return nil, scanerr.Unreachablef("fetch_failed", "could not reach %s: %v", targetURL, lastErr)
}

func (f *StaticFetcher) fetchOnce(ctx context.Context, targetURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, scanerr.InvalidInputf("bad_url", "malformed URL %q: %v", targetURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxBodyBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	raw, err := decodeCharset(body, resp.Header.Get("Content-Type"))
	if err != nil {
		logging.Get(logging.CategoryFetch).Warn("charset decode failed for %s, falling back to raw bytes: %v", targetURL, err)
		raw = string(body)
	}

	doc := &Document{
		FinalURL:       resp.Request.URL.String(),
		StatusCode:     resp.StatusCode,
		Headers:        resp.Header,
		Cookies:        resp.Cookies(),
		RawHTML:        raw,
		SizeBytes:      int64(len(body)),
		RenderModeUsed: domain.RenderStatic,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("non-2xx response: HTTP %d", resp.StatusCode))
		return doc, nil
	}

	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Root = root
	return doc, nil
}

// decodeCharset re-encodes body to UTF-8 per its declared Content-Type,
// defaulting to UTF-8 when the header is silent (spec §4.B).
func decodeCharset(body []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(strings.NewReader(string(body)), contentType)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NeedsRender applies the `auto` escalation heuristic: a static body that
// is implausibly small, or that carries a recognized SPA-root marker, is
// treated as probably client-rendered and escalated to the headless
// renderer (spec §4.B).
func NeedsRender(doc *Document, cfg config.RenderConfig) bool {
	if doc.Root == nil {
		return true
	}
	if doc.SizeBytes < int64(cfg.StaticBodyThresholdBytes) {
		return true
	}
	lower := strings.ToLower(doc.RawHTML)
	for _, signal := range cfg.SPARootAttributes {
		if strings.Contains(lower, strings.ToLower(signal)) {
			return true
		}
	}
	return false
}
