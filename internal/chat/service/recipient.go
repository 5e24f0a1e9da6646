package service

import (
	"strings"
	"unicode"
)

// recipientMarkers are the words that introduce a transfer recipient
// ("envía 20 ETH a Maria", "send 20 ETH to Maria").
var recipientMarkers = map[string]bool{"a": true, "to": true}

// ExtractRecipientCandidate returns the lowercased words after the first
// "a"/"to" of utterance, joined by single spaces and stripped of
// punctuation. It reports false when there is no marker or nothing after it.
func ExtractRecipientCandidate(utterance string) (string, bool) {
	words := strings.Fields(strings.ToLower(utterance))
	for i, w := range words {
		if !recipientMarkers[w] {
			continue
		}
		rest := make([]string, 0, len(words)-i-1)
		for _, r := range words[i+1:] {
			r = strings.TrimFunc(r, func(c rune) bool {
				return unicode.IsPunct(c) || unicode.IsSymbol(c)
			})
			if r != "" {
				rest = append(rest, r)
			}
		}
		if len(rest) == 0 {
			return "", false
		}
		return strings.Join(rest, " "), true
	}
	return "", false
}
