package grammar

import (
	"strings"

	"voxsurf/internal/ordinal"
)

// Parser matches utterances against the command grammar.
type Parser struct {
	groups []group
}

// NewParser returns a parser over the default grammar.
func NewParser() *Parser {
	return &Parser{groups: defaultGroups}
}

// Parse resolves an utterance to an Intent. Groups are tried strictly in
// priority order; within a group, the pattern with the longest match wins.
// A group that expects an ordinal but captures something unresolvable is
// skipped rather than failing the parse, so "open result thing" can still
// reach the free-text fallbacks. If nothing matches, the intent is
// KindUnrecognized carrying the normalized utterance for the AI fallback.
func (p *Parser) Parse(utterance string) Intent {
	norm := Normalize(utterance)
	if norm == "" {
		return Intent{Kind: KindUnrecognized, Raw: utterance}
	}

	for _, g := range p.groups {
		token, matched := g.bestMatch(norm)
		if !matched {
			continue
		}

		switch g.capture {
		case captureNone:
			return Intent{Kind: g.kind, Raw: norm}
		case captureText:
			text := strings.TrimSpace(token)
			if text == "" {
				continue
			}
			return Intent{Kind: g.kind, Text: text, Raw: norm}
		case captureOrdinal:
			n, ok := ordinal.Resolve(token)
			if !ok {
				// Fall through to lower-priority groups.
				continue
			}
			return Intent{Kind: g.kind, Ordinal: n, Raw: norm}
		}
	}

	return Intent{Kind: KindUnrecognized, Raw: norm}
}

// bestMatch tries every pattern in the group and keeps the longest overall
// match. Longest-match tie-breaking keeps "go to google.com" from being
// claimed by a shorter "go to" trigger with an empty capture.
func (g group) bestMatch(norm string) (string, bool) {
	best := -1
	var token string
	for _, re := range g.patterns {
		m := re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		if len(m[0]) > best {
			best = len(m[0])
			if len(m) > 1 {
				token = m[1]
			} else {
				token = ""
			}
		}
	}
	return token, best >= 0
}

// Normalize lowercases, collapses whitespace, and strips trailing
// punctuation so spoken transcriptions compare cleanly against triggers.
func Normalize(utterance string) string {
	s := strings.ToLower(strings.TrimSpace(utterance))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".!?,")
	return s
}
