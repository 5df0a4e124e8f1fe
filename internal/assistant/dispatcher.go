// Package assistant turns parsed voice commands into browser actions and
// spoken replies. The dispatcher is a small state machine: what "open the
// third result" means depends on whether the last settled page was a search
// results page, and the numbered indexes are only trusted while fresh.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"voxsurf/internal/browser"
	"voxsurf/internal/config"
	"voxsurf/internal/grammar"
	. "voxsurf/internal/logging"
	"voxsurf/internal/pageindex"
)

// State tracks what kind of page the dispatcher believes is showing.
type State int

const (
	StateNoBrowser State = iota
	StateBrowserIdle
	StateOnSearchResults
	StateOnGenericPage
)

func (s State) String() string {
	switch s {
	case StateNoBrowser:
		return "no-browser"
	case StateBrowserIdle:
		return "idle"
	case StateOnSearchResults:
		return "search-results"
	case StateOnGenericPage:
		return "generic-page"
	default:
		return "unknown"
	}
}

var (
	// ErrNoResults means a result-index command arrived with no usable
	// search results on hand.
	ErrNoResults = errors.New("no search results available")
	// ErrNoLinks means the page yielded no indexable links.
	ErrNoLinks = errors.New("no links available")
	// ErrNoMatch means no indexed link matched the spoken text.
	ErrNoMatch = errors.New("no link matched")
)

// Dispatcher owns the command pipeline: parse, act, reply. One command runs
// at a time; overlapping Handle calls serialize on the mutex.
type Dispatcher struct {
	cfg       config.Config
	browser   Browser
	responder Responder
	recorder  Recorder
	parser    *grammar.Parser

	mu      sync.Mutex
	state   State
	results pageindex.ResultIndex
	links   pageindex.LinkIndex
}

// New builds a dispatcher. responder may be nil; the assistant then declines
// utterances it cannot parse instead of answering them.
func New(cfg config.Config, b Browser, responder Responder) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		browser:   b,
		responder: responder,
		parser:    grammar.NewParser(),
		state:     StateNoBrowser,
	}
}

// SetRecorder attaches a transcript recorder. Optional; nil disables it.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorder = r
}

// State returns the dispatcher's current page state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// CurrentResults returns a snapshot of the numbered search results.
func (d *Dispatcher) CurrentResults() []pageindex.ResultEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.results.Entries()
}

// CurrentLinks returns a snapshot of the numbered page links.
func (d *Dispatcher) CurrentLinks() []pageindex.LinkEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.links.Entries()
}

// Handle interprets one utterance and returns the spoken reply. It never
// returns an error; failures become apologetic replies so the voice loop
// always has something to say.
func (d *Dispatcher) Handle(ctx context.Context, utterance string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	intent := d.parser.Parse(utterance)
	L_info("command", "kind", intent.Kind, "utterance", intent.Raw, "state", d.state)

	reply, err := d.dispatch(ctx, intent)
	if err != nil {
		L_warn("command failed", "kind", intent.Kind, "error", err)
		reply = d.explain(err)
	}
	spoken := d.speak(reply)
	if d.recorder != nil {
		d.recorder.Record(intent.Raw, string(intent.Kind), spoken)
	}
	return spoken
}

func (d *Dispatcher) dispatch(ctx context.Context, intent grammar.Intent) (string, error) {
	switch intent.Kind {
	case grammar.KindOpenBrowser:
		return d.openBrowser(ctx)
	case grammar.KindCloseBrowser:
		return d.closeBrowser()
	case grammar.KindUnrecognized:
		return d.fallback(ctx, intent.Raw)
	}

	// Everything below needs a live browser; open one on demand.
	if err := d.ensureOpen(ctx); err != nil {
		return "", err
	}

	switch intent.Kind {
	case grammar.KindSearch:
		return d.search(ctx, intent.Text)
	case grammar.KindNavigate:
		return d.navigate(ctx, intent.Text)
	case grammar.KindOpenResult:
		return d.openResult(ctx, intent.Ordinal)
	case grammar.KindOpenLinkByNumber:
		return d.openLinkByNumber(ctx, intent.Ordinal)
	case grammar.KindOpenLinkByText:
		return d.openLinkByText(ctx, intent.Text)
	case grammar.KindListResults:
		return d.listResults(ctx)
	case grammar.KindListLinks:
		return d.listLinks(ctx)
	case grammar.KindGoBack:
		return d.historyOp(ctx, d.browser.Back, "Going back")
	case grammar.KindGoForward:
		return d.historyOp(ctx, d.browser.Forward, "Going forward")
	case grammar.KindRefresh:
		return d.historyOp(ctx, d.browser.Refresh, "Refreshing the page")
	case grammar.KindScrollDown:
		return "Scrolling down", d.browser.Scroll(ctx, "down")
	case grammar.KindScrollUp:
		return "Scrolling up", d.browser.Scroll(ctx, "up")
	case grammar.KindNewTab:
		return "Opening a new tab", d.newTab(ctx)
	case grammar.KindCloseTab:
		return "Closing this tab", d.closeTab(ctx)
	case grammar.KindNextTab:
		return "Switching to the next tab", d.switchTab(ctx, "next")
	case grammar.KindPrevTab:
		return "Switching to the previous tab", d.switchTab(ctx, "previous")
	case grammar.KindBookmark:
		return "Bookmarking this page", d.browser.Bookmark(ctx)
	case grammar.KindGetTitle:
		return d.getTitle(ctx)
	case grammar.KindGetURL:
		return d.getURL(ctx)
	default:
		return d.fallback(ctx, intent.Raw)
	}
}

func (d *Dispatcher) openBrowser(ctx context.Context) (string, error) {
	if d.browser.IsOpen() {
		return "The browser is already open", nil
	}
	if err := d.browser.Open(ctx); err != nil {
		return "", err
	}
	d.state = StateBrowserIdle
	d.results.Clear()
	d.links.Clear()
	return "Opening the browser", nil
}

// closeBrowser always succeeds from the user's point of view; teardown
// errors are logged and swallowed.
func (d *Dispatcher) closeBrowser() (string, error) {
	if err := d.browser.Close(); err != nil {
		L_warn("browser close reported error", "error", err)
	}
	d.state = StateNoBrowser
	d.results.Clear()
	d.links.Clear()
	return "Closing the browser", nil
}

func (d *Dispatcher) ensureOpen(ctx context.Context) error {
	if d.browser.IsOpen() {
		return nil
	}
	if err := d.browser.Open(ctx); err != nil {
		return err
	}
	d.state = StateBrowserIdle
	d.results.Clear()
	d.links.Clear()
	return nil
}

func (d *Dispatcher) search(ctx context.Context, query string) (string, error) {
	if err := d.browser.Search(ctx, query); err != nil {
		d.afterFailedNavigation(err)
		return "", err
	}
	d.afterNavigation(ctx, true)

	n := d.results.Size()
	if d.results.IsStale() || n == 0 {
		return fmt.Sprintf("I searched for %s but could not pick out any results", query), nil
	}
	top, _ := d.results.Get(1)
	return fmt.Sprintf("I found %d results for %s. The top one is %s", n, query, top.Title), nil
}

func (d *Dispatcher) navigate(ctx context.Context, target string) (string, error) {
	if err := d.browser.Navigate(ctx, target); err != nil {
		d.afterFailedNavigation(err)
		return "", err
	}
	d.afterNavigation(ctx, false)
	return fmt.Sprintf("Opening %s", target), nil
}

func (d *Dispatcher) openResult(ctx context.Context, n int) (string, error) {
	if err := d.ensureResults(ctx); err != nil {
		return "", err
	}
	entry, err := d.results.Get(n)
	if err != nil {
		return "", fmt.Errorf("result %d of %d: %w", n, d.results.Size(), err)
	}
	if err := d.browser.Navigate(ctx, entry.URL); err != nil {
		d.afterFailedNavigation(err)
		return "", err
	}
	d.afterNavigation(ctx, false)
	return fmt.Sprintf("Opening result %d, %s", n, entry.Title), nil
}

func (d *Dispatcher) openLinkByNumber(ctx context.Context, n int) (string, error) {
	if err := d.ensureLinks(ctx); err != nil {
		return "", err
	}
	entry, err := d.links.Get(n)
	if err != nil {
		return "", fmt.Errorf("link %d of %d: %w", n, d.links.Size(), err)
	}
	if err := d.browser.ClickLink(ctx, entry); err != nil {
		d.afterFailedNavigation(err)
		return "", err
	}
	d.afterNavigation(ctx, false)
	return fmt.Sprintf("Opening link %d, %s", n, entry.Text), nil
}

func (d *Dispatcher) openLinkByText(ctx context.Context, text string) (string, error) {
	if err := d.ensureLinks(ctx); err != nil {
		return "", err
	}
	matches := d.links.FindByText(text, true)
	if len(matches) == 0 {
		matches = d.links.FindByText(text, false)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %q", ErrNoMatch, text)
	}
	entry := matches[0]
	if err := d.browser.ClickLink(ctx, entry); err != nil {
		d.afterFailedNavigation(err)
		return "", err
	}
	d.afterNavigation(ctx, false)
	return fmt.Sprintf("Opening %s", entry.Text), nil
}

func (d *Dispatcher) listResults(ctx context.Context) (string, error) {
	if err := d.ensureResults(ctx); err != nil {
		return "", err
	}
	entries := d.results.Entries()
	limit := d.cfg.Assistant.GetSpokenListLimit()
	var b strings.Builder
	fmt.Fprintf(&b, "I have %d results", len(entries))
	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Fprintf(&b, ". %d: %s", e.Index, e.Title)
	}
	return b.String(), nil
}

func (d *Dispatcher) listLinks(ctx context.Context) (string, error) {
	if err := d.ensureLinks(ctx); err != nil {
		return "", err
	}
	entries := d.links.Entries()
	limit := d.cfg.Assistant.GetSpokenListLimit()
	var b strings.Builder
	fmt.Fprintf(&b, "I can see %d links", len(entries))
	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Fprintf(&b, ". %d: %s", e.Index, e.Text)
	}
	return b.String(), nil
}

func (d *Dispatcher) historyOp(ctx context.Context, op func(context.Context) error, phrase string) (string, error) {
	if err := op(ctx); err != nil {
		d.afterFailedNavigation(err)
		return "", err
	}
	d.afterNavigation(ctx, false)
	return phrase, nil
}

func (d *Dispatcher) newTab(ctx context.Context) error {
	if err := d.browser.NewTab(ctx); err != nil {
		return err
	}
	// The fresh blank tab is now active; snapshots of the old tab are dead.
	d.afterNavigation(ctx, false)
	return nil
}

func (d *Dispatcher) closeTab(ctx context.Context) error {
	if err := d.browser.CloseTab(ctx); err != nil {
		return err
	}
	// The surviving tab's content is unknown to us.
	d.afterNavigation(ctx, false)
	return nil
}

func (d *Dispatcher) switchTab(ctx context.Context, direction string) error {
	if err := d.browser.SwitchTab(ctx, direction); err != nil {
		return err
	}
	d.afterNavigation(ctx, false)
	return nil
}

func (d *Dispatcher) getTitle(ctx context.Context) (string, error) {
	title, err := d.browser.Title(ctx)
	if err != nil {
		return "", err
	}
	if title == "" {
		return "This page has no title", nil
	}
	return fmt.Sprintf("The page title is %s", title), nil
}

func (d *Dispatcher) getURL(ctx context.Context) (string, error) {
	u, err := d.browser.URL(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("The current address is %s", u), nil
}

func (d *Dispatcher) fallback(ctx context.Context, utterance string) (string, error) {
	if d.responder == nil {
		return "I did not catch a browser command in that", nil
	}
	answer, err := d.responder.Respond(ctx, utterance)
	if err != nil {
		L_warn("ai fallback failed", "error", err)
		return "I did not catch a browser command, and my answer service is unavailable", nil
	}
	return answer, nil
}

// ensureResults makes sure the result index is usable, re-harvesting when a
// fresh snapshot can be taken from the current page.
func (d *Dispatcher) ensureResults(ctx context.Context) error {
	if !d.results.IsStale() && d.results.Size() > 0 {
		return nil
	}
	if d.state != StateOnSearchResults {
		return ErrNoResults
	}
	entries, err := d.browser.HarvestResults(ctx, d.cfg.Search.MaxResults)
	if err != nil {
		return fmt.Errorf("refreshing results: %w", err)
	}
	if len(entries) == 0 {
		return ErrNoResults
	}
	d.results.Rebuild(entries)
	return nil
}

// ensureLinks lazily snapshots the current page's links. The index is only
// built when a link command actually needs it.
func (d *Dispatcher) ensureLinks(ctx context.Context) error {
	if !d.links.IsStale() && d.links.Size() > 0 {
		return nil
	}
	entries, err := d.browser.HarvestLinks(ctx, d.cfg.Search.MaxLinks)
	if err != nil {
		return fmt.Errorf("snapshotting links: %w", err)
	}
	if len(entries) == 0 {
		return ErrNoLinks
	}
	d.links.Rebuild(entries)
	return nil
}

// afterNavigation recomputes state and index validity once a page settles.
// Links are always invalidated; results survive only when the destination is
// itself a results page, in which case they are re-harvested immediately.
// searched is true when the navigation was an explicit search.
func (d *Dispatcher) afterNavigation(ctx context.Context, searched bool) {
	d.links.MarkStale()

	u, err := d.browser.URL(ctx)
	if err != nil {
		L_warn("could not read URL after navigation", "error", err)
		d.results.MarkStale()
		d.state = StateOnGenericPage
		return
	}

	if searched || d.cfg.Search.IsResultsPage(u) {
		d.state = StateOnSearchResults
		entries, err := d.browser.HarvestResults(ctx, d.cfg.Search.MaxResults)
		if err != nil {
			L_warn("result harvest failed", "error", err)
			d.results.MarkStale()
			return
		}
		d.results.Rebuild(entries)
		return
	}

	d.results.MarkStale()
	d.state = StateOnGenericPage
}

// afterFailedNavigation applies the conservative interpretation of a failed
// page transition: a timeout means the page content is unknown, so both
// indexes are distrusted and the state degrades to a generic page.
func (d *Dispatcher) afterFailedNavigation(err error) {
	if errors.Is(err, browser.ErrPageLoadTimeout) {
		d.results.MarkStale()
		d.links.MarkStale()
		d.state = StateOnGenericPage
	}
}

// explain converts a failure into something worth saying out loud.
func (d *Dispatcher) explain(err error) string {
	switch {
	case errors.Is(err, pageindex.ErrOutOfRange):
		return "That number is out of range"
	case errors.Is(err, ErrNoResults):
		return "I do not have any search results yet. Ask me to search for something first"
	case errors.Is(err, ErrNoLinks):
		return "I could not find any links on this page"
	case errors.Is(err, ErrNoMatch):
		return "I could not find a link like that on this page"
	case errors.Is(err, browser.ErrElementNotFound):
		return "I found that link in my notes but it is gone from the page now"
	case errors.Is(err, browser.ErrPageLoadTimeout):
		return "The page is taking too long to load"
	case errors.Is(err, browser.ErrLaunch):
		return "I could not open the browser"
	case errors.Is(err, browser.ErrNotOpen):
		return "The browser is not open"
	default:
		return "Sorry, that did not work"
	}
}

// speak appends the configured persona suffix to a reply.
func (d *Dispatcher) speak(reply string) string {
	suffix := d.cfg.Assistant.ReplySuffix
	if suffix == "" || strings.HasSuffix(reply, suffix) {
		return reply
	}
	return reply + suffix
}
