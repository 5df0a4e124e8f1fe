package browser

import (
	"context"
	"fmt"

	. "voxsurf/internal/logging"
	"voxsurf/internal/pageindex"
)

// HarvestResults extracts the organic result links from a settled search
// results page. It is engine-agnostic: results are recognized as visible
// anchors wrapped in (or wrapping) a heading, which holds across DuckDuckGo
// HTML, Google, and Bing without per-engine selectors. Entries come back in
// document order, capped at max.
func (s *Session) HarvestResults(ctx context.Context, max int) ([]pageindex.ResultEntry, error) {
	page, err := s.page()
	if err != nil {
		return nil, err
	}

	js := fmt.Sprintf(`
	() => {
		const max = %d;
		const seen = new Set();
		const out = [];

		function visible(el) {
			const rect = el.getBoundingClientRect();
			if (rect.width === 0 || rect.height === 0) return false;
			const style = getComputedStyle(el);
			return style.display !== 'none' && style.visibility !== 'hidden';
		}

		function cleanText(el) {
			return (el.textContent || '').trim().replace(/\s+/g, ' ');
		}

		// An organic result is an anchor tied to a heading: either the
		// anchor contains the heading or a heading ancestor contains it.
		document.querySelectorAll('a[href]').forEach((a) => {
			if (out.length >= max) return;
			if (!visible(a)) return;

			const href = a.href;
			if (!href || href.startsWith('javascript:') || href.includes('#')) return;

			let heading = a.querySelector('h1, h2, h3');
			if (!heading) {
				let node = a.parentElement;
				for (let depth = 0; node && depth < 3; depth++) {
					const tag = node.tagName ? node.tagName.toLowerCase() : '';
					if (tag === 'h1' || tag === 'h2' || tag === 'h3') { heading = node; break; }
					node = node.parentElement;
				}
			}
			if (!heading) return;

			const title = cleanText(heading) || cleanText(a);
			if (!title) return;
			if (seen.has(href)) return;
			seen.add(href);

			out.push({ title: title, url: href });
		});

		return out;
	}
	`, max)

	var raw []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	evalResult, err := page.Context(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("harvest results: %w", err)
	}
	if err := evalResult.Value.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("harvest results: unmarshal: %w", err)
	}

	entries := make([]pageindex.ResultEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, pageindex.ResultEntry{Title: r.Title, URL: r.URL})
	}
	L_debug("harvested results", "count", len(entries))
	return entries, nil
}

// HarvestLinks snapshots the visible hyperlinks of the current page in
// document order, capped at max. Each entry records the anchor's trimmed
// text, resolved href, and a CSS selector stable enough to re-find the
// element for clicking.
func (s *Session) HarvestLinks(ctx context.Context, max int) ([]pageindex.LinkEntry, error) {
	page, err := s.page()
	if err != nil {
		return nil, err
	}

	js := fmt.Sprintf(`
	() => {
		const max = %d;
		const out = [];

		function visible(el) {
			const rect = el.getBoundingClientRect();
			if (rect.width === 0 || rect.height === 0) return false;
			const style = getComputedStyle(el);
			return style.display !== 'none' && style.visibility !== 'hidden';
		}

		function selectorFor(el, idx) {
			if (el.id) return 'a#' + CSS.escape(el.id);
			const testId = el.getAttribute('data-testid');
			if (testId) return 'a[data-testid="' + CSS.escape(testId) + '"]';
			return 'a[href]:nth-of-type(' + (idx + 1) + ')';
		}

		const anchors = document.querySelectorAll('a[href]');
		for (let i = 0; i < anchors.length && out.length < max; i++) {
			const a = anchors[i];
			if (!visible(a)) continue;

			const href = a.href;
			if (!href || href === '#' || href.startsWith('javascript:')) continue;

			let text = (a.textContent || '').trim().replace(/\s+/g, ' ');
			if (!text) text = a.getAttribute('aria-label') || a.getAttribute('title') || '';
			if (!text) continue;
			if (text.length > 80) text = text.slice(0, 77) + '...';

			out.push({ text: text, href: href, selector: selectorFor(a, i) });
		}

		return out;
	}
	`, max)

	var raw []struct {
		Text     string `json:"text"`
		Href     string `json:"href"`
		Selector string `json:"selector"`
	}
	evalResult, err := page.Context(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("harvest links: %w", err)
	}
	if err := evalResult.Value.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("harvest links: unmarshal: %w", err)
	}

	entries := make([]pageindex.LinkEntry, 0, len(raw))
	for _, l := range raw {
		entries = append(entries, pageindex.LinkEntry{Text: l.Text, Href: l.Href, Selector: l.Selector})
	}
	L_debug("harvested links", "count", len(entries))
	return entries, nil
}
