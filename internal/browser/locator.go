package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	. "voxsurf/internal/logging"
	"voxsurf/internal/pageindex"
)

// strategy is one way to re-find an indexed link on the live page. Each gets
// its own bounded wait; the chain moves on when a strategy misses.
type strategy struct {
	name string
	find func(p *rod.Page, entry pageindex.LinkEntry) (*rod.Element, error)
}

// locatorChain re-finds links in priority order: exact visible text first,
// then case-insensitive partial text, then the selector recorded at harvest
// time, then title/aria-label attributes. Text outranks the selector because
// selectors rot the moment the page re-renders.
var locatorChain = []strategy{
	{
		name: "exact-text",
		find: func(p *rod.Page, entry pageindex.LinkEntry) (*rod.Element, error) {
			return p.ElementR("a", "/^"+jsRegexQuote(entry.Text)+"$/i")
		},
	},
	{
		name: "partial-text",
		find: func(p *rod.Page, entry pageindex.LinkEntry) (*rod.Element, error) {
			return p.ElementR("a", "/"+jsRegexQuote(entry.Text)+"/i")
		},
	},
	{
		name: "recorded-selector",
		find: func(p *rod.Page, entry pageindex.LinkEntry) (*rod.Element, error) {
			if entry.Selector == "" {
				return nil, fmt.Errorf("no recorded selector")
			}
			return p.Element(entry.Selector)
		},
	},
	{
		name: "title-attribute",
		find: func(p *rod.Page, entry pageindex.LinkEntry) (*rod.Element, error) {
			return p.Element(`a[title="` + escapeAttributeValue(entry.Text) + `"]`)
		},
	},
	{
		name: "aria-label",
		find: func(p *rod.Page, entry pageindex.LinkEntry) (*rod.Element, error) {
			return p.Element(`a[aria-label="` + escapeAttributeValue(entry.Text) + `"]`)
		},
	},
}

// ClickLink re-finds an indexed link on the live page and clicks it, then
// waits for any resulting navigation to settle. Returns ErrElementNotFound
// when every strategy misses.
func (s *Session) ClickLink(ctx context.Context, entry pageindex.LinkEntry) error {
	page, err := s.page()
	if err != nil {
		return err
	}
	p := page.Context(ctx)

	el, err := s.resolve(p, entry)
	if err != nil {
		return err
	}

	if err := el.ScrollIntoView(); err != nil {
		L_warn("scroll into view failed", "text", entry.Text, "error", err)
	}
	if err := el.Click("left", 1); err != nil {
		return fmt.Errorf("click %q: %w", entry.Text, err)
	}

	// The click may or may not navigate; a timed-out settle here still means
	// the page content is unknown, which the caller must treat conservatively.
	if err := p.Timeout(s.cfg.NavigationTimeout()).WaitLoad(); err != nil {
		return navErr("click", err)
	}
	return nil
}

func (s *Session) resolve(p *rod.Page, entry pageindex.LinkEntry) (*rod.Element, error) {
	timeout := s.cfg.ElementTimeout()
	for _, st := range locatorChain {
		el, err := st.find(p.Timeout(timeout), entry)
		if err == nil && el != nil {
			L_debug("link resolved", "strategy", st.name, "text", entry.Text)
			return el, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrElementNotFound, entry.Text)
}

// jsRegexQuote escapes a literal string for embedding in a JavaScript regex.
func jsRegexQuote(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$/`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeAttributeValue escapes characters for use in CSS attribute selectors.
func escapeAttributeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
