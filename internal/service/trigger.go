package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type ChatAction string

const (
	ActionNone      ChatAction = "none"
	ActionBroadcast ChatAction = "broadcast"
	ActionSearch    ChatAction = "search"
)

// Decision is the outcome of classifying one chat message.
type Decision struct {
	Action   ChatAction
	Marker   string
	Category string
}

func (d Decision) Triggered() bool { return d.Action == ActionBroadcast }

var broadcastMarkers = []string{
	"рекоменд", "посовет", "советуе", "подскаж", "лучш", "найд", "найт",
	"recommend", "suggest", "best", "find",
}

var searchMarkers = []string{"ищу", "поиск", "покаж", "search"}

var searchPhrases = []string{"где купить", "show me", "looking for"}

// Words skipped when picking a category hint.
var hintFillers = []string{
	"хорош", "отличн", "недорог", "нормальн", "надёжн", "надежн", "какой", "какую", "какая", "какое",
	"город", "рядом", "нибудь", "сегодня", "мне", "нам",
	"good", "nice", "cheap", "great", "near", "nearby", "some", "city",
}

// Classify decides whether a message implicitly asks for a broadcast to
// organization agents, for a plain search, or for neither.
func Classify(message string) Decision {
	tokens := tokenize(message)

	for i, tok := range tokens {
		if m, ok := matchMarker(tok, broadcastMarkers); ok {
			return Decision{Action: ActionBroadcast, Marker: m, Category: categoryHint(tokens, i)}
		}
	}

	lower := strings.ToLower(message)
	for _, p := range searchPhrases {
		if idx := strings.Index(lower, p); idx >= 0 {
			pos := len(tokenize(lower[:idx+len(p)])) - 1
			return Decision{Action: ActionSearch, Marker: p, Category: categoryHint(tokens, pos)}
		}
	}
	for i, tok := range tokens {
		if m, ok := matchMarker(tok, searchMarkers); ok {
			return Decision{Action: ActionSearch, Marker: m, Category: categoryHint(tokens, i)}
		}
	}
	return Decision{Action: ActionNone}
}

// ShouldBroadcast reports whether message triggers a broadcast and returns the
// category hint, which may be empty.
func ShouldBroadcast(message string) (string, bool) {
	d := Classify(message)
	return d.Category, d.Triggered()
}

// matchMarker reports the first marker found in tok.
func matchMarker(tok string, markers []string) (string, bool) {
	for _, m := range markers {
		if markerMatches(tok, m) {
			return m, true
		}
	}
	return "", false
}

// markerMatches finds Cyrillic stems of four or more runes anywhere in the
// token so that prefixed forms ("порекомендуй", "наилучший") hit. Latin
// markers are whole English words and, like very short stems, must start the
// token so that "research" does not read as "search".
func markerMatches(tok, m string) bool {
	if !isLatin(m) && utf8.RuneCountInString(m) >= 4 {
		return strings.Contains(tok, m)
	}
	return strings.HasPrefix(tok, m)
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func categoryHint(tokens []string, markerAt int) string {
	for i := markerAt + 1; i < len(tokens); i++ {
		if hintCandidate(tokens[i]) {
			return stem(tokens[i])
		}
	}
	for i := markerAt - 1; i >= 0; i-- {
		if hintCandidate(tokens[i]) {
			return stem(tokens[i])
		}
	}
	return ""
}

func hintCandidate(tok string) bool {
	if utf8.RuneCountInString(tok) < 3 || isDigits(tok) || isStopWord(tok) {
		return false
	}
	if _, ok := matchMarker(tok, broadcastMarkers); ok {
		return false
	}
	if _, ok := matchMarker(tok, searchMarkers); ok {
		return false
	}
	for _, f := range hintFillers {
		if strings.HasPrefix(tok, f) {
			return false
		}
	}
	return true
}
