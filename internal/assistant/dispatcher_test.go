package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voxsurf/internal/browser"
	"voxsurf/internal/config"
	"voxsurf/internal/pageindex"
)

// fakeBrowser simulates the session: navigations just record the URL, and
// harvests serve canned snapshots keyed by nothing fancier than fields.
type fakeBrowser struct {
	open       bool
	currentURL string

	results []pageindex.ResultEntry
	links   []pageindex.LinkEntry

	navErr     error
	clickErr   error
	closeErr   error
	openErr    error
	harvestErr error

	navigations  []string
	clicked      []pageindex.LinkEntry
	harvestCalls int
}

func (f *fakeBrowser) IsOpen() bool { return f.open }

func (f *fakeBrowser) Open(ctx context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	f.currentURL = "https://duckduckgo.com"
	return nil
}

func (f *fakeBrowser) Close() error {
	f.open = false
	return f.closeErr
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	if f.navErr != nil {
		return f.navErr
	}
	target := browser.NormalizeURL(url)
	f.currentURL = target
	f.navigations = append(f.navigations, target)
	return nil
}

func (f *fakeBrowser) Back(ctx context.Context) error    { return f.navErr }
func (f *fakeBrowser) Forward(ctx context.Context) error { return f.navErr }
func (f *fakeBrowser) Refresh(ctx context.Context) error { return f.navErr }

func (f *fakeBrowser) Scroll(ctx context.Context, direction string) error { return nil }

func (f *fakeBrowser) Search(ctx context.Context, query string) error {
	return f.Navigate(ctx, "https://duckduckgo.com/html/?q="+query)
}

func (f *fakeBrowser) Title(ctx context.Context) (string, error) { return "Example Domain", nil }
func (f *fakeBrowser) URL(ctx context.Context) (string, error)   { return f.currentURL, nil }
func (f *fakeBrowser) Bookmark(ctx context.Context) error        { return nil }

func (f *fakeBrowser) NewTab(ctx context.Context) error {
	f.currentURL = "about:blank"
	return nil
}
func (f *fakeBrowser) CloseTab(ctx context.Context) error { return nil }

func (f *fakeBrowser) SwitchTab(ctx context.Context, direction string) error { return nil }

func (f *fakeBrowser) HarvestResults(ctx context.Context, max int) ([]pageindex.ResultEntry, error) {
	f.harvestCalls++
	if f.harvestErr != nil {
		return nil, f.harvestErr
	}
	if len(f.results) > max {
		return f.results[:max], nil
	}
	return f.results, nil
}

func (f *fakeBrowser) HarvestLinks(ctx context.Context, max int) ([]pageindex.LinkEntry, error) {
	if f.harvestErr != nil {
		return nil, f.harvestErr
	}
	if len(f.links) > max {
		return f.links[:max], nil
	}
	return f.links, nil
}

func (f *fakeBrowser) ClickLink(ctx context.Context, entry pageindex.LinkEntry) error {
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicked = append(f.clicked, entry)
	f.currentURL = entry.Href
	return nil
}

func newTestDispatcher(f *fakeBrowser) *Dispatcher {
	cfg := config.DefaultConfig()
	return New(cfg, f, nil)
}

func searchResults() []pageindex.ResultEntry {
	return []pageindex.ResultEntry{
		{Title: "Django", URL: "https://www.djangoproject.com/"},
		{Title: "Flask", URL: "https://flask.palletsprojects.com/"},
		{Title: "FastAPI", URL: "https://fastapi.tiangolo.com/"},
	}
}

func pageLinks() []pageindex.LinkEntry {
	return []pageindex.LinkEntry{
		{Text: "Home", Href: "https://example.com/"},
		{Text: "Getting Started", Href: "https://example.com/start"},
		{Text: "API Reference", Href: "https://example.com/api"},
	}
}

func TestOpenAndCloseBrowser(t *testing.T) {
	f := &fakeBrowser{}
	d := newTestDispatcher(f)

	reply := d.Handle(context.Background(), "open the browser")
	if !strings.Contains(reply, "Opening the browser") {
		t.Errorf("reply = %q", reply)
	}
	if !f.open {
		t.Error("browser not opened")
	}
	if d.State() != StateBrowserIdle {
		t.Errorf("state = %v, want idle", d.State())
	}

	reply = d.Handle(context.Background(), "open the browser")
	if !strings.Contains(reply, "already open") {
		t.Errorf("second open reply = %q", reply)
	}

	reply = d.Handle(context.Background(), "close the browser")
	if !strings.Contains(reply, "Closing the browser") {
		t.Errorf("close reply = %q", reply)
	}
	if d.State() != StateNoBrowser {
		t.Errorf("state after close = %v", d.State())
	}
}

func TestCloseBrowserAlwaysSucceeds(t *testing.T) {
	f := &fakeBrowser{open: true, closeErr: errors.New("websocket already gone")}
	d := newTestDispatcher(f)
	d.state = StateOnGenericPage

	reply := d.Handle(context.Background(), "close the browser")
	if !strings.Contains(reply, "Closing the browser") {
		t.Errorf("teardown error leaked into reply: %q", reply)
	}
	if d.State() != StateNoBrowser {
		t.Errorf("state = %v, want no-browser", d.State())
	}
}

func TestSearchBuildsResultIndex(t *testing.T) {
	f := &fakeBrowser{results: searchResults()}
	d := newTestDispatcher(f)

	reply := d.Handle(context.Background(), "search for python web frameworks")
	if !strings.Contains(reply, "3 results") {
		t.Errorf("reply = %q, want result count", reply)
	}
	if !strings.Contains(reply, "Django") {
		t.Errorf("reply = %q, want top result title", reply)
	}
	if d.State() != StateOnSearchResults {
		t.Errorf("state = %v, want search-results", d.State())
	}
	if got := d.CurrentResults(); len(got) != 3 || got[0].Index != 1 {
		t.Errorf("CurrentResults = %+v", got)
	}
	if !f.open {
		t.Error("search should auto-open the browser")
	}
}

func TestOpenResultNavigatesToStoredURL(t *testing.T) {
	f := &fakeBrowser{results: searchResults()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "search for python web frameworks")
	reply := d.Handle(context.Background(), "open the second result")

	if !strings.Contains(reply, "Flask") {
		t.Errorf("reply = %q, want Flask", reply)
	}
	last := f.navigations[len(f.navigations)-1]
	if last != "https://flask.palletsprojects.com/" {
		t.Errorf("navigated to %q", last)
	}
	if d.State() != StateOnGenericPage {
		t.Errorf("state = %v, want generic-page", d.State())
	}
}

func TestOpenResultOutOfRange(t *testing.T) {
	f := &fakeBrowser{results: searchResults()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "search for python web frameworks")
	reply := d.Handle(context.Background(), "open the tenth result")
	if !strings.Contains(reply, "out of range") {
		t.Errorf("reply = %q, want out-of-range", reply)
	}
	// Index must stay intact for a retry with a valid number.
	reply = d.Handle(context.Background(), "open the first result")
	if !strings.Contains(reply, "Django") {
		t.Errorf("retry reply = %q", reply)
	}
}

func TestOpenResultWithoutSearch(t *testing.T) {
	f := &fakeBrowser{}
	d := newTestDispatcher(f)

	reply := d.Handle(context.Background(), "open the first result")
	if !strings.Contains(reply, "search for something first") {
		t.Errorf("reply = %q", reply)
	}
}

func TestNavigationInvalidatesResults(t *testing.T) {
	f := &fakeBrowser{results: searchResults()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "search for python web frameworks")
	d.Handle(context.Background(), "go to example.com")
	if d.State() != StateOnGenericPage {
		t.Fatalf("state = %v, want generic-page", d.State())
	}

	reply := d.Handle(context.Background(), "open the first result")
	if !strings.Contains(reply, "search for something first") {
		t.Errorf("stale results still served: %q", reply)
	}
}

func TestNavigationToResultsPageKeepsResultState(t *testing.T) {
	f := &fakeBrowser{results: searchResults()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "go to duckduckgo.com/html/?q=cats")
	if d.State() != StateOnSearchResults {
		t.Fatalf("state = %v, want search-results", d.State())
	}
	reply := d.Handle(context.Background(), "open the first result")
	if !strings.Contains(reply, "Django") {
		t.Errorf("reply = %q", reply)
	}
}

func TestOpenLinkByNumberHarvestsLazily(t *testing.T) {
	f := &fakeBrowser{links: pageLinks()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "go to example.com")
	reply := d.Handle(context.Background(), "open link 2")

	if !strings.Contains(reply, "Getting Started") {
		t.Errorf("reply = %q", reply)
	}
	if len(f.clicked) != 1 || f.clicked[0].Text != "Getting Started" {
		t.Errorf("clicked = %+v", f.clicked)
	}
}

func TestOpenLinkByTextPrefersExactMatch(t *testing.T) {
	f := &fakeBrowser{links: []pageindex.LinkEntry{
		{Text: "API Reference Guide", Href: "https://example.com/guide"},
		{Text: "API", Href: "https://example.com/api"},
	}}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "go to example.com")
	d.Handle(context.Background(), "click the api link")

	if len(f.clicked) != 1 || f.clicked[0].Href != "https://example.com/api" {
		t.Errorf("clicked = %+v, want exact match first", f.clicked)
	}
}

func TestOpenLinkByTextNoMatch(t *testing.T) {
	f := &fakeBrowser{links: pageLinks()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "go to example.com")
	reply := d.Handle(context.Background(), "click the pricing link")
	if !strings.Contains(reply, "could not find a link") {
		t.Errorf("reply = %q", reply)
	}
}

func TestNewTabInvalidatesIndexes(t *testing.T) {
	f := &fakeBrowser{results: searchResults(), links: pageLinks()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "search for python web frameworks")
	d.Handle(context.Background(), "go to example.com")
	d.Handle(context.Background(), "list the links")

	// The new tab shows about:blank; the old tab's snapshots are dead.
	f.links = nil
	reply := d.Handle(context.Background(), "new tab")
	if !strings.Contains(reply, "Opening a new tab") {
		t.Fatalf("reply = %q", reply)
	}
	if d.State() != StateOnGenericPage {
		t.Errorf("state = %v, want generic-page", d.State())
	}

	reply = d.Handle(context.Background(), "open link 1")
	if !strings.Contains(reply, "could not find any links") {
		t.Errorf("stale link snapshot served on new tab: %q", reply)
	}
	if len(f.clicked) != 0 {
		t.Errorf("clicked %d links from the old tab's snapshot", len(f.clicked))
	}

	reply = d.Handle(context.Background(), "open the first result")
	if !strings.Contains(reply, "search for something first") {
		t.Errorf("stale result snapshot served on new tab: %q", reply)
	}
}

func TestLinkByNumberOnSearchResultsRebuildsLinks(t *testing.T) {
	f := &fakeBrowser{results: searchResults(), links: pageLinks()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "search for python web frameworks")
	if d.State() != StateOnSearchResults {
		t.Fatalf("state = %v, want search-results", d.State())
	}

	// No link command has run yet, so the link index is unbuilt and must be
	// snapshotted implicitly before the click.
	reply := d.Handle(context.Background(), "click link number 2")
	if !strings.Contains(reply, "Getting Started") {
		t.Errorf("reply = %q", reply)
	}
	if len(f.clicked) != 1 || f.clicked[0].Text != "Getting Started" {
		t.Errorf("clicked = %+v", f.clicked)
	}
}

func TestListResultsCapsSpokenList(t *testing.T) {
	many := make([]pageindex.ResultEntry, 9)
	for i := range many {
		many[i] = pageindex.ResultEntry{Title: "Result", URL: "https://example.com"}
	}
	f := &fakeBrowser{results: many}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "search for anything")
	reply := d.Handle(context.Background(), "list the results")

	if !strings.Contains(reply, "9 results") {
		t.Errorf("reply = %q, want full count", reply)
	}
	if got := strings.Count(reply, "Result"); got != 5 {
		t.Errorf("spoke %d entries, want spoken list capped at 5", got)
	}
}

func TestPageLoadTimeoutDegradesConservatively(t *testing.T) {
	f := &fakeBrowser{results: searchResults()}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "search for python web frameworks")

	f.navErr = browser.ErrPageLoadTimeout
	reply := d.Handle(context.Background(), "go to example.com")
	if !strings.Contains(reply, "too long to load") {
		t.Errorf("reply = %q", reply)
	}
	if d.State() != StateOnGenericPage {
		t.Errorf("state = %v, want conservative generic-page", d.State())
	}

	f.navErr = nil
	reply = d.Handle(context.Background(), "open the first result")
	if !strings.Contains(reply, "search for something first") {
		t.Errorf("stale results survived timeout: %q", reply)
	}
}

func TestUnrecognizedWithoutResponder(t *testing.T) {
	f := &fakeBrowser{}
	d := newTestDispatcher(f)

	reply := d.Handle(context.Background(), "what is the weather like today")
	if !strings.Contains(reply, "did not catch a browser command") {
		t.Errorf("reply = %q", reply)
	}
	if f.open {
		t.Error("unrecognized utterance should not open the browser")
	}
}

type cannedResponder struct{ answer string }

func (c cannedResponder) Respond(ctx context.Context, utterance string) (string, error) {
	return c.answer, nil
}

func TestUnrecognizedUsesResponder(t *testing.T) {
	f := &fakeBrowser{}
	cfg := config.DefaultConfig()
	d := New(cfg, f, cannedResponder{answer: "It is sunny"})

	reply := d.Handle(context.Background(), "what is the weather like today")
	if !strings.Contains(reply, "It is sunny") {
		t.Errorf("reply = %q", reply)
	}
}

func TestRepliesCarryPersonaSuffix(t *testing.T) {
	f := &fakeBrowser{}
	d := newTestDispatcher(f)

	reply := d.Handle(context.Background(), "open the browser")
	if !strings.HasSuffix(reply, ", Boss") {
		t.Errorf("reply %q missing persona suffix", reply)
	}
}

func TestSuffixDisabledWhenEmpty(t *testing.T) {
	f := &fakeBrowser{}
	cfg := config.DefaultConfig()
	cfg.Assistant.ReplySuffix = ""
	d := New(cfg, f, nil)

	reply := d.Handle(context.Background(), "open the browser")
	if strings.Contains(reply, "Boss") {
		t.Errorf("reply = %q, suffix should be disabled", reply)
	}
}

func TestLaunchFailure(t *testing.T) {
	f := &fakeBrowser{openErr: browser.ErrLaunch}
	d := newTestDispatcher(f)

	reply := d.Handle(context.Background(), "search for cats")
	if !strings.Contains(reply, "could not open the browser") {
		t.Errorf("reply = %q", reply)
	}
	if d.State() != StateNoBrowser {
		t.Errorf("state = %v, want no-browser", d.State())
	}
}

func TestGetTitleAndURL(t *testing.T) {
	f := &fakeBrowser{}
	d := newTestDispatcher(f)

	d.Handle(context.Background(), "go to example.com")
	reply := d.Handle(context.Background(), "what is the page title")
	if !strings.Contains(reply, "Example Domain") {
		t.Errorf("title reply = %q", reply)
	}
	reply = d.Handle(context.Background(), "what is the current url")
	if !strings.Contains(reply, "https://example.com") {
		t.Errorf("url reply = %q", reply)
	}
}
