// Package grammar turns recognized utterances into structured intents.
//
// The grammar is an ordered list of pattern groups; order encodes priority so
// specific phrasings ("open third result") are claimed before generic
// fallbacks ("open <text>") can shadow them. Each group declares the
// CommandKind it yields and how to extract its parameter, if any.
package grammar

import "regexp"

// Kind identifies one command the assistant understands.
type Kind string

const (
	KindOpenBrowser      Kind = "open_browser"
	KindCloseBrowser     Kind = "close_browser"
	KindRefresh          Kind = "refresh"
	KindSearch           Kind = "search"
	KindOpenResult       Kind = "open_result"
	KindListResults      Kind = "list_results"
	KindOpenLinkByText   Kind = "open_link_by_text"
	KindOpenLinkByNumber Kind = "open_link_by_number"
	KindListLinks        Kind = "list_links"
	KindNavigate         Kind = "navigate"
	KindGoBack           Kind = "go_back"
	KindGoForward        Kind = "go_forward"
	KindNewTab           Kind = "new_tab"
	KindCloseTab         Kind = "close_tab"
	KindNextTab          Kind = "next_tab"
	KindPrevTab          Kind = "prev_tab"
	KindScrollDown       Kind = "scroll_down"
	KindScrollUp         Kind = "scroll_up"
	KindBookmark         Kind = "bookmark"
	KindGetTitle         Kind = "get_title"
	KindGetURL           Kind = "get_url"
	KindUnrecognized     Kind = "unrecognized"
)

// Intent is the structured outcome of parsing one utterance. Produced once
// per utterance and consumed once by the dispatcher.
type Intent struct {
	Kind Kind
	// Text carries the free-text parameter: search query, link text, or
	// navigation target, depending on Kind.
	Text string
	// Ordinal carries the 1-based position for OpenResult/OpenLinkByNumber.
	Ordinal int
	// Raw is the normalized utterance, kept for the AI fallback and logging.
	Raw string
}

// capture describes how a group extracts its parameter from a regexp match.
type capture int

const (
	captureNone capture = iota
	captureText
	captureOrdinal
)

// group is one priority tier: a set of trigger patterns that all yield the
// same kind. Patterns within a group compete by longest literal match.
type group struct {
	kind     Kind
	capture  capture
	patterns []*regexp.Regexp
}

func mustGroup(kind Kind, cap capture, exprs ...string) group {
	g := group{kind: kind, capture: cap}
	for _, e := range exprs {
		g.patterns = append(g.patterns, regexp.MustCompile(e))
	}
	return g
}

// defaultGroups is the command grammar in priority order. Result and
// numbered-link phrasings must precede the generic navigate and link-click
// fallbacks, otherwise "open first result" would be read as a request to
// click a link literally named "first result".
var defaultGroups = []group{
	mustGroup(KindOpenBrowser, captureNone,
		`^(?:open|launch|start) (?:the )?(?:web )?browser$`,
	),
	mustGroup(KindCloseBrowser, captureNone,
		`^(?:close|quit|exit) (?:the )?browser$`,
	),
	mustGroup(KindOpenResult, captureOrdinal,
		`^(?:open|click) (?:the )?([a-z0-9]+) result$`,
		`^(?:open|click) result (?:number )?([a-z0-9]+)$`,
	),
	mustGroup(KindOpenLinkByNumber, captureOrdinal,
		`^(?:open|click) (?:on )?link (?:number )?([a-z0-9]+)$`,
		`^(?:open|click) (?:the )?([a-z0-9]+) link$`,
	),
	mustGroup(KindListResults, captureNone,
		`^(?:show|list) (?:the )?(?:search )?results$`,
		`^what are the results$`,
		`^show me the results$`,
	),
	mustGroup(KindListLinks, captureNone,
		`^(?:show|list) (?:me )?(?:all )?(?:the )?links$`,
		`^what links are available$`,
	),
	mustGroup(KindNewTab, captureNone,
		`^(?:open (?:a )?)?new tab$`,
		`^create (?:a )?tab$`,
	),
	mustGroup(KindCloseTab, captureNone,
		`^close (?:this |the )?tab$`,
	),
	mustGroup(KindNextTab, captureNone,
		`^next tab$`,
		`^switch tab$`,
	),
	mustGroup(KindPrevTab, captureNone,
		`^previous tab$`,
		`^prev tab$`,
	),
	mustGroup(KindGoBack, captureNone,
		`^(?:go|navigate) back$`,
		`^back page$`,
	),
	mustGroup(KindGoForward, captureNone,
		`^(?:go|navigate) forward$`,
		`^forward page$`,
	),
	mustGroup(KindRefresh, captureNone,
		`^(?:refresh|reload)(?: (?:the )?page)?$`,
	),
	mustGroup(KindScrollDown, captureNone,
		`^scroll down$`,
		`^page down$`,
	),
	mustGroup(KindScrollUp, captureNone,
		`^scroll up$`,
		`^page up$`,
	),
	mustGroup(KindBookmark, captureNone,
		`^bookmark (?:this )?page$`,
		`^(?:add|save) bookmark$`,
	),
	mustGroup(KindGetTitle, captureNone,
		`^what(?: is|'s) the (?:page )?title$`,
		`^(?:page|get) title$`,
	),
	mustGroup(KindGetURL, captureNone,
		`^what(?: is|'s) the (?:current )?(?:url|address)$`,
		`^current url$`,
		`^where am i$`,
	),
	mustGroup(KindSearch, captureText,
		`^search (?:for )?(.+)$`,
		`^google (.+)$`,
		`^look up (.+)$`,
		`^find (.+)$`,
	),
	mustGroup(KindNavigate, captureText,
		`^(?:go|navigate) to (.+)$`,
		`^visit (.+)$`,
		`^open (?:website |site )?(.+\.(?:com|org|net|edu|gov|co\.uk|io|dev|ly|me|info))$`,
	),
	// Generic fallbacks: anything "click ..." or "open ..." left over is a
	// request to follow a visible link by its text.
	mustGroup(KindOpenLinkByText, captureText,
		`^click (?:on )?(?:the )?(.+?)(?: link)?$`,
		`^open (.+)$`,
	),
}
