// Package browser owns the single live Chrome handle the assistant drives.
// One Session exists per process; every navigation-class operation blocks
// until the page settles or the configured timeout elapses, because the
// numbered page indexes can only be harvested from a settled DOM.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"voxsurf/internal/config"
	. "voxsurf/internal/logging"
)

// tab tracks one page in the ordered tab set.
type tab struct {
	id   string
	page *rod.Page
}

// Session is the single live browser handle plus its tab set. Methods are
// safe for the one-command-at-a-time pipeline; the mutex only guards against
// a Close racing a pending navigation.
type Session struct {
	cfg    config.BrowserConfig
	search config.SearchConfig

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	tabs     []*tab
	active   int
}

// New returns an unopened session.
func New(cfg config.BrowserConfig, search config.SearchConfig) *Session {
	return &Session{cfg: cfg, search: search, active: -1}
}

// IsOpen reports whether a live browser handle exists.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser != nil
}

// Open launches Chrome (or attaches to an existing one via debugger_url) and
// opens the initial tab on the search engine's front page. Opening an
// already-open session is a no-op.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		// Verify the handle is still alive before reusing it.
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		L_warn("stale browser connection detected, relaunching")
		_ = s.browser.Close()
		s.reset()
	}

	controlURL := s.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(s.cfg.Headless)
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		if s.cfg.NoSandbox {
			l = l.Set("no-sandbox")
		}
		l = l.Set("disable-dev-shm-usage")

		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLaunch, err)
		}
		controlURL = url
		s.launcher = l
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("%w: connect to chrome: %v", ErrLaunch, err)
	}
	s.browser = b

	page, err := s.newPageLocked(homeURL(s.search))
	if err != nil {
		_ = b.Close()
		s.reset()
		return fmt.Errorf("%w: initial page: %v", ErrLaunch, err)
	}
	s.tabs = []*tab{{id: uuid.NewString(), page: page}}
	s.active = 0

	L_info("browser opened", "controlURL", controlURL, "headless", s.cfg.Headless)
	return nil
}

// Close tears down the browser unconditionally. It must succeed even while a
// navigation wait is pending, so pending timeouts are advisory only.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Kill()
	}
	s.reset()
	L_info("browser closed")
	return err
}

func (s *Session) reset() {
	s.browser = nil
	s.launcher = nil
	s.tabs = nil
	s.active = -1
}

// page returns the active tab's page.
func (s *Session) page() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil || s.active < 0 || s.active >= len(s.tabs) {
		return nil, ErrNotOpen
	}
	return s.tabs[s.active].page, nil
}

func (s *Session) newPageLocked(url string) (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, err
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.GetViewportWidth(),
		Height:            s.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		L_warn("failed to set viewport", "error", err)
	}
	return page, nil
}

// Navigate loads a URL in the active tab and blocks until the page settles.
// Bare hosts get an https scheme.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	page, err := s.page()
	if err != nil {
		return err
	}
	target := NormalizeURL(rawURL)
	L_debug("navigate", "url", target)

	p := page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	if err := p.Navigate(target); err != nil {
		return navErr("navigate", err)
	}
	if err := p.WaitLoad(); err != nil {
		return navErr("navigate", err)
	}
	return nil
}

// Back goes to the previous history entry and waits for the page to settle.
func (s *Session) Back(ctx context.Context) error {
	return s.historyOp(ctx, "back", (*rod.Page).NavigateBack)
}

// Forward goes to the next history entry and waits for the page to settle.
func (s *Session) Forward(ctx context.Context) error {
	return s.historyOp(ctx, "forward", (*rod.Page).NavigateForward)
}

// Refresh reloads the current page and waits for it to settle.
func (s *Session) Refresh(ctx context.Context) error {
	return s.historyOp(ctx, "refresh", (*rod.Page).Reload)
}

func (s *Session) historyOp(ctx context.Context, name string, op func(*rod.Page) error) error {
	page, err := s.page()
	if err != nil {
		return err
	}
	p := page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	if err := op(p); err != nil {
		return navErr(name, err)
	}
	if err := p.WaitLoad(); err != nil {
		return navErr(name, err)
	}
	return nil
}

// Scroll moves the viewport one step up or down.
func (s *Session) Scroll(ctx context.Context, direction string) error {
	page, err := s.page()
	if err != nil {
		return err
	}
	step := s.cfg.GetScrollStep()
	if direction == "up" {
		step = -step
	}
	_, err = page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, step)
	return err
}

// Title returns the active tab's page title.
func (s *Session) Title(ctx context.Context) (string, error) {
	page, err := s.page()
	if err != nil {
		return "", err
	}
	info, err := page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// URL returns the active tab's current URL.
func (s *Session) URL(ctx context.Context) (string, error) {
	page, err := s.page()
	if err != nil {
		return "", err
	}
	info, err := page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Bookmark saves the current page with the browser's native bookmark chord
// (Ctrl+D, then Enter to accept the dialog).
func (s *Session) Bookmark(ctx context.Context) error {
	page, err := s.page()
	if err != nil {
		return err
	}
	p := page.Context(ctx)
	if err := p.Keyboard.Press(input.ControlLeft); err != nil {
		return err
	}
	if err := p.Keyboard.Press(input.Key('d')); err != nil {
		return err
	}
	if err := p.Keyboard.Release(input.Key('d')); err != nil {
		return err
	}
	if err := p.Keyboard.Release(input.ControlLeft); err != nil {
		return err
	}
	if err := p.Keyboard.Press(input.Enter); err != nil {
		return err
	}
	return p.Keyboard.Release(input.Enter)
}

// NewTab opens a blank tab and makes it active.
func (s *Session) NewTab(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return ErrNotOpen
	}
	page, err := s.newPageLocked("about:blank")
	if err != nil {
		return err
	}
	s.tabs = append(s.tabs, &tab{id: uuid.NewString(), page: page})
	s.active = len(s.tabs) - 1
	L_debug("tab opened", "tabs", len(s.tabs))
	return nil
}

// CloseTab closes the active tab. Closing the last remaining tab is allowed
// and leaves the browser open with a fresh blank tab, so the session never
// ends up with zero tabs while open.
func (s *Session) CloseTab(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil || s.active < 0 {
		return ErrNotOpen
	}

	closing := s.tabs[s.active]
	if len(s.tabs) == 1 {
		page, err := s.newPageLocked("about:blank")
		if err != nil {
			return err
		}
		_ = closing.page.Close()
		s.tabs = []*tab{{id: uuid.NewString(), page: page}}
		s.active = 0
		return nil
	}

	_ = closing.page.Close()
	s.tabs = append(s.tabs[:s.active], s.tabs[s.active+1:]...)
	if s.active >= len(s.tabs) {
		s.active = len(s.tabs) - 1
	}
	_, err := s.tabs[s.active].page.Activate()
	return err
}

// SwitchTab cycles the active tab forward or backward, wrapping around.
func (s *Session) SwitchTab(ctx context.Context, direction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil || len(s.tabs) == 0 {
		return ErrNotOpen
	}
	if len(s.tabs) == 1 {
		return nil
	}
	if direction == "previous" {
		s.active = (s.active - 1 + len(s.tabs)) % len(s.tabs)
	} else {
		s.active = (s.active + 1) % len(s.tabs)
	}
	_, err := s.tabs[s.active].page.Activate()
	return err
}

// TabCount returns the number of open tabs.
func (s *Session) TabCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

// Search navigates the active tab to the configured engine's results page
// for query and waits for it to settle.
func (s *Session) Search(ctx context.Context, query string) error {
	return s.Navigate(ctx, s.search.SearchURL(query))
}

// navErr maps a timed-out rod operation onto ErrPageLoadTimeout and wraps
// everything else as-is.
func navErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrPageLoadTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NormalizeURL prefixes bare hosts with https:// so spoken targets like
// "google.com" navigate cleanly.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") || strings.HasPrefix(trimmed, "about:") {
		return trimmed
	}
	return "https://" + trimmed
}

// homeURL derives the engine's front page from the search template, falling
// back to about:blank if the template host cannot be determined.
func homeURL(search config.SearchConfig) string {
	u := search.SearchURL("")
	if i := strings.Index(u, "://"); i > 0 {
		rest := u[i+3:]
		if j := strings.IndexByte(rest, '/'); j > 0 {
			return u[:i+3] + rest[:j]
		}
	}
	return "about:blank"
}
