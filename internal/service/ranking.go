package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/zioncity/backend/internal/models"
)

// Longest first; the first ending that leaves a stem of at least three runes wins.
var inflectionEndings = []string{
	"иями", "ями", "ами", "ого", "его", "ому", "ему", "ыми", "ими", "ией",
	"ой", "ей", "ий", "ый", "ая", "яя", "ое", "ее", "ые", "ие", "ую", "юю",
	"ом", "ем", "ам", "ям", "ах", "ях", "ов", "ев", "ию", "ия",
	"а", "я", "у", "ю", "ы", "и", "е", "о", "ь", "й",
	"ing", "ies", "es", "ed", "s",
}

var stopWords = map[string]struct{}{
	"и": {}, "в": {}, "во": {}, "на": {}, "с": {}, "со": {}, "по": {}, "для": {}, "к": {}, "о": {},
	"об": {}, "от": {}, "до": {}, "из": {}, "у": {}, "за": {}, "не": {}, "а": {}, "но": {}, "что": {},
	"как": {}, "где": {}, "мне": {}, "я": {}, "ты": {}, "мы": {}, "вы": {}, "это": {}, "то": {}, "же": {},
	"ли": {}, "бы": {}, "или": {}, "при": {}, "про": {}, "есть": {}, "пожалуйста": {}, "нибудь": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {}, "for": {}, "to": {},
	"with": {}, "me": {}, "my": {}, "i": {}, "is": {}, "are": {}, "please": {}, "some": {}, "any": {},
}

// Intent words say how the user asks, not what about, so they do not count
// as topical terms. Cyrillic stems follow the trigger marker rules; Latin
// words must equal the token or its stem.
var intentStems = []string{
	"лучш", "рекоменд", "посовет", "советуе", "подскаж", "хорош", "найд", "найт", "ищу", "поиск", "покаж",
	"best", "good", "recommend", "suggest", "find", "search", "show", "looking",
}

// Score is the fraction of the query's significant terms that also occur in
// the organization's profile or its reply. It is 1 when the profile text
// repeats the query and 0 when the vocabularies are disjoint.
func Score(query string, profile models.OrganizationAgentProfile, reply models.Document) float64 {
	queryTerms := significantStems(query)
	if len(queryTerms) == 0 {
		return 0
	}

	var corpus []string
	corpus = append(corpus, stems(profile.OrganizationName)...)
	corpus = append(corpus, stems(profile.BusinessDescription)...)
	for _, s := range profile.Specialties {
		corpus = append(corpus, stems(s)...)
	}
	corpus = append(corpus, stems(documentText(reply))...)

	matched := 0
	for _, q := range queryTerms {
		for _, c := range corpus {
			if stemsMatch(q, c) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// significantStems returns distinct stems of topical query words. A query made
// only of intent or stop words falls back to all of its words.
func significantStems(text string) []string {
	all := tokenize(text)
	seen := map[string]struct{}{}
	var out []string
	add := func(tok string) {
		s := stem(tok)
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, tok := range all {
		if isStopWord(tok) || isIntentWord(tok) {
			continue
		}
		add(tok)
	}
	if len(out) == 0 {
		for _, tok := range all {
			add(tok)
		}
	}
	return out
}

func stems(text string) []string {
	toks := tokenize(text)
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, stem(t))
	}
	return out
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 || isDigits(f) {
			out = append(out, f)
		}
	}
	return out
}

func stem(word string) string {
	runes := []rune(word)
	for _, end := range inflectionEndings {
		e := []rune(end)
		if len(runes)-len(e) >= 3 && string(runes[len(runes)-len(e):]) == end {
			return string(runes[:len(runes)-len(e)])
		}
	}
	return word
}

// stemsMatch compares stems on their common prefix so that loosely inflected
// forms meet; stems shorter than four runes must match exactly.
func stemsMatch(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	if n < 4 {
		return a == b
	}
	return string(ra[:n]) == string(rb[:n])
}

func isStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}

func isIntentWord(tok string) bool {
	st := stem(tok)
	for _, s := range intentStems {
		if isLatin(s) {
			if tok == s || st == s {
				return true
			}
			continue
		}
		if markerMatches(tok, s) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// documentText flattens string content of a reply in key order.
func documentText(doc models.Document) string {
	var b strings.Builder
	appendText(&b, map[string]any(doc))
	return b.String()
}

func appendText(b *strings.Builder, v any) {
	switch t := v.(type) {
	case string:
		b.WriteString(t)
		b.WriteByte(' ')
	case []string:
		for _, s := range t {
			appendText(b, s)
		}
	case []any:
		for _, item := range t {
			appendText(b, item)
		}
	case []models.Document:
		for _, item := range t {
			appendText(b, map[string]any(item))
		}
	case models.Document:
		appendText(b, map[string]any(t))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendText(b, t[k])
		}
	case fmt.Stringer:
		b.WriteString(t.String())
		b.WriteByte(' ')
	}
}
