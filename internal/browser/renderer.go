// Package browser provides headless-browser rendering for pages whose
// compliance-relevant markup is only present after JavaScript runs
// (spec §4.B, rendered mode).
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/semaphore"

	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/fetch"
	"compliscan/internal/logging"
	"compliscan/internal/scanerr"
)

// Renderer owns a single detached Chrome instance and serves concurrent,
// semaphore-capped renders against it (spec §5: MaxConcurrent renders in
// flight at once).
type Renderer struct {
	cfg        config.RenderConfig
	sem        *semaphore.Weighted
	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
}

// NewRenderer builds a Renderer; the Chrome process is launched lazily on
// first Render so a core that never needs rendering never pays for it.
func NewRenderer(cfg config.RenderConfig) *Renderer {
	return &Renderer{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(maxInt(cfg.MaxConcurrent, 1))),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (r *Renderer) ensureStarted() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return nil
		}
		_ = r.browser.Close()
		r.browser = nil
	}

	l := launcher.New().Headless(r.cfg.Headless)
	if r.cfg.BinaryPath != "" {
		l = l.Bin(r.cfg.BinaryPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return scanerr.Dependencyf("browser_launch_failed", err, "could not launch headless browser")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return scanerr.Dependencyf("browser_connect_failed", err, "could not connect to headless browser")
	}
	r.browser = browser
	r.controlURL = controlURL
	return nil
}

// Shutdown closes the underlying Chrome process. Safe to call on a
// Renderer that never launched.
func (r *Renderer) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	r.controlURL = ""
	return err
}

// Render navigates to targetURL, waits for network idle (or the hard cap,
// whichever comes first), and extracts the DOM, cookies, local storage,
// and a network log whose requests up to the point the page settled
// (network idle, or the wait cap) are marked before-interaction — the
// cookie check's baseline for "fired before any consent interaction"
// (spec §4.C.3).
func (r *Renderer) Render(ctx context.Context, targetURL string) (*fetch.Document, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, scanerr.CancelledErr()
	}
	defer r.sem.Release(1)

	timer := logging.StartTimer(logging.CategoryRender, "render")
	defer timer.Stop()

	if err := r.ensureStarted(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.HardCap())
	defer cancel()

	incognito, err := r.browser.Incognito()
	if err != nil {
		return nil, scanerr.Dependencyf("browser_incognito_failed", err, "could not open isolated browser context")
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, scanerr.Dependencyf("browser_page_failed", err, "could not open a page")
	}
	defer page.Close()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.ViewportWidth,
		Height:            r.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.Get(logging.CategoryRender).Warn("render: set viewport failed for %s: %v", targetURL, err)
	}

	network := r.trackNetwork(ctx, page)

	navCtx := page.Context(ctx).Timeout(r.cfg.NavigationTimeout())
	if err := navCtx.Navigate(targetURL); err != nil {
		return nil, scanerr.Wrap(scanerr.RenderFailure, "navigate_failed", fmt.Sprintf("could not navigate to %s", targetURL), err)
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, r.cfg.NetworkIdle()*6)
	defer waitCancel()
	_ = page.Context(waitCtx).WaitStable(r.cfg.NetworkIdle())

	network.markInteractionBoundary()

	rawHTML, err := page.HTML()
	if err != nil {
		return nil, scanerr.Wrap(scanerr.RenderFailure, "dom_extract_failed", "could not extract rendered DOM", err)
	}

	root, err := fetch.Parse(rawHTML)
	if err != nil {
		return nil, scanerr.Wrap(scanerr.RenderFailure, "dom_parse_failed", "could not parse rendered DOM", err)
	}

	cookiesRes, err := proto.NetworkGetCookies{}.Call(page)
	var cookies []*http.Cookie
	if err == nil {
		cookies = toHTTPCookies(cookiesRes.Cookies)
	}

	localStorage := snapshotLocalStorage(page)

	info := page.MustInfo()
	doc := &fetch.Document{
		FinalURL:       info.URL,
		StatusCode:     200,
		RawHTML:        rawHTML,
		SizeBytes:      int64(len(rawHTML)),
		Root:           root,
		RenderModeUsed: domain.RenderRendered,
		LocalStorage:   localStorage,
		NetworkLog:     network.events(),
		Cookies:        cookies,
	}
	return doc, nil
}

// networkTracker records every request observed on a page, tagging each
// as before or after the interaction boundary (the point at which the
// caller considers initial load/settle complete).
type networkTracker struct {
	mu       sync.Mutex
	events   _events
	boundary bool
}

type _events = []fetch.NetworkEvent

func (r *Renderer) trackNetwork(ctx context.Context, page *rod.Page) *networkTracker {
	t := &networkTracker{boundary: false}
	go page.Context(ctx).EachEvent(func(ev *proto.NetworkRequestWillBeSent) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.events = append(t.events, fetch.NetworkEvent{
			URL:               ev.Request.URL,
			BeforeInteraction: !t.boundary,
		})
	})()
	return t
}

func (t *networkTracker) markInteractionBoundary() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.boundary = true
}

func (t *networkTracker) events() []fetch.NetworkEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]fetch.NetworkEvent, len(t.events))
	copy(out, t.events)
	return out
}

// snapshotLocalStorage reads window.localStorage via the same
// evaluate-and-stringify approach used elsewhere for storage capture.
func snapshotLocalStorage(page *rod.Page) map[string]string {
	res, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			try {
				const out = {};
				for (const key of Object.keys(localStorage)) {
					out[key] = localStorage.getItem(key);
				}
				return JSON.stringify(out);
			} catch (e) {
				return "{}";
			}
		}`,
		ByValue: true,
	})
	if err != nil {
		return nil
	}
	var raw string
	if err := json.Unmarshal(res.Value, &raw); err != nil {
		return nil
	}
	out := make(map[string]string)
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func toHTTPCookies(cookies []*proto.NetworkCookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: time.Unix(int64(c.Expires), 0),
		})
	}
	return out
}
