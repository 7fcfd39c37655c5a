// Package wake implements the wake gate: recognizing the assistant's wake
// phrase in a transcript while the system is idle, and the end-of-session
// phrases that put it back to sleep.
//
// Matching proceeds in two stages. Exact matching first: the normalized
// transcript is tested for the phrase as a whole, as a prefix, or as a
// padded substring. When that fails, a phonetic stage tolerates ASR
// near-misses ("Kate" heard for "Cade"): Double Metaphone codes are computed
// per token, and a token whose primary code equals a phrase's primary code
// matches outright, while weaker code overlap must additionally clear a
// Jaro-Winkler similarity threshold. A final fuzzy pass accepts tokens with
// very high Jaro-Winkler similarity even without phonetic overlap.
package wake

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.60
	defaultFuzzyThreshold    = 0.85
)

// defaultPhrases are the wake phrases the assistant answers to, covering the
// droid designation and the spellings ASR commonly produces for it.
var defaultPhrases = []string{
	"k4", "k 4", "k4d3", "k4 d3",
	"cade", "kade", "kayde", "kadee", "kate",
}

// defaultShutdownPhrases end a session and return the assistant to idle.
var defaultShutdownPhrases = []string{
	"shutdown", "shut down", "go to sleep", "stand by", "standby",
	"goodbye", "good bye", "that will be all", "thatll be all",
	"bye cade", "bye kade",
}

// Option is a functional option for configuring a [Gate].
type Option func(*Gate)

// WithPhrases replaces the default wake phrase set.
func WithPhrases(phrases []string) Option {
	return func(g *Gate) {
		if len(phrases) > 0 {
			g.phrases = phrases
		}
	}
}

// WithShutdownPhrases replaces the default end-of-session phrase set.
func WithShutdownPhrases(phrases []string) Option {
	return func(g *Gate) {
		if len(phrases) > 0 {
			g.shutdown = phrases
		}
	}
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// token with weak phonetic overlap to count as a wake match. Default: 0.60.
func WithPhoneticThreshold(threshold float64) Option {
	return func(g *Gate) { g.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for the pure string
// similarity fallback. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(g *Gate) { g.fuzzyThreshold = threshold }
}

// Gate matches wake and shutdown phrases against transcripts. Read-only
// after construction and safe for concurrent use.
type Gate struct {
	phrases  []string
	shutdown []string

	phoneticThreshold float64
	fuzzyThreshold    float64

	// normalized phrase data, precomputed at construction
	normPhrases []phraseEntry
	normSleep   []string
}

type phraseEntry struct {
	norm      string
	primary   string
	secondary string
}

// New returns a Gate configured with the supplied options.
func New(opts ...Option) *Gate {
	g := &Gate{
		phrases:           defaultPhrases,
		shutdown:          defaultShutdownPhrases,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(g)
	}

	for _, p := range g.phrases {
		norm := Normalize(p)
		if norm == "" {
			continue
		}
		primary, secondary := matchr.DoubleMetaphone(strings.ReplaceAll(norm, " ", ""))
		g.normPhrases = append(g.normPhrases, phraseEntry{
			norm:      norm,
			primary:   primary,
			secondary: secondary,
		})
	}
	for _, p := range g.shutdown {
		if norm := Normalize(p); norm != "" {
			g.normSleep = append(g.normSleep, norm)
		}
	}
	return g
}

// Normalize lowercases s, strips everything but letters, digits, and spaces,
// and collapses whitespace runs.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '\'':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Check reports whether the transcript contains a wake phrase. On a match it
// returns the configured phrase that matched.
func (g *Gate) Check(transcript string) (phrase string, ok bool) {
	norm := Normalize(transcript)
	if norm == "" {
		return "", false
	}

	// Stage 1: exact, prefix, and padded substring.
	padded := " " + norm + " "
	for _, e := range g.normPhrases {
		if norm == e.norm ||
			strings.HasPrefix(norm, e.norm+" ") ||
			strings.Contains(padded, " "+e.norm+" ") {
			return e.norm, true
		}
	}

	// Stage 2: phonetic per-token comparison.
	for _, token := range strings.Fields(norm) {
		if e, ok := g.matchToken(token); ok {
			return e, true
		}
	}
	return "", false
}

// matchToken tests one transcript token against every wake phrase using
// Double Metaphone codes and Jaro-Winkler ranking.
func (g *Gate) matchToken(token string) (string, bool) {
	tp, ts := matchr.DoubleMetaphone(token)

	for _, e := range g.normPhrases {
		jw := matchr.JaroWinkler(token, strings.ReplaceAll(e.norm, " ", ""), false)

		// Identical primary codes mean the token sounds like the phrase
		// ("kate" and "cade" both encode to KT). A weak overlap through a
		// secondary code needs string similarity on top.
		if tp != "" && tp == e.primary {
			if jw >= g.phoneticThreshold {
				return e.norm, true
			}
			continue
		}
		if codesTouch(tp, ts, e.primary, e.secondary) && jw >= g.phoneticThreshold {
			return e.norm, true
		}
		if jw >= g.fuzzyThreshold {
			return e.norm, true
		}
	}
	return "", false
}

// codesTouch reports whether any non-empty code from the first pair equals
// any from the second.
func codesTouch(p1, s1, p2, s2 string) bool {
	for _, a := range []string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || (s2 != "" && a == s2) {
			return true
		}
	}
	return false
}

// Strip returns the normalized transcript with the matched wake phrase and
// everything before it removed, so "hey cade what time is it" becomes
// "what time is it". Returns "" when nothing follows the wake phrase.
func (g *Gate) Strip(transcript string) string {
	norm := Normalize(transcript)
	if norm == "" {
		return ""
	}

	padded := " " + norm + " "
	for _, e := range g.normPhrases {
		if idx := strings.Index(padded, " "+e.norm+" "); idx >= 0 {
			rest := padded[idx+len(e.norm)+2:]
			return strings.TrimSpace(rest)
		}
	}

	// Phonetic match: drop through the matched token.
	tokens := strings.Fields(norm)
	for i, token := range tokens {
		if _, ok := g.matchToken(token); ok {
			return strings.Join(tokens[i+1:], " ")
		}
	}
	return norm
}

// IsShutdown reports whether the transcript contains an end-of-session
// phrase.
func (g *Gate) IsShutdown(transcript string) bool {
	norm := Normalize(transcript)
	if norm == "" {
		return false
	}
	padded := " " + norm + " "
	for _, p := range g.normSleep {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}
