package moderation

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"

	errs "pairchat/errors"
)

// leet maps common letter substitutions back to their plain form so that
// "d4mn" matches the list entry "damn".
var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e',
	'1': 'i', '!': 'i',
	'0': 'o',
	'5': 's', '$': 's',
	'7': 't',
}

// Moderator masks disallowed words. Matching runs over a normalized copy
// of the text (lowercased, leet-decoded) while masking applies to the
// original, so the surrounding characters survive untouched.
type Moderator struct {
	log         *slog.Logger
	machine     *goahocorasick.Machine
	replacement rune
}

func NewModerator(log *slog.Logger, words []string, replacement rune) (*Moderator, error) {
	if len(words) == 0 {
		return nil, errs.ErrEmptyWords
	}
	dict := make([][]rune, 0, len(words))
	for _, word := range words {
		dict = append(dict, []rune(strings.ToLower(word)))
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(dict); err != nil {
		return nil, err
	}
	return &Moderator{log: log, machine: machine, replacement: replacement}, nil
}

// Censor masks every listed word in text and returns the rewritten text
// together with the distinct words that matched. Clean text comes back
// unchanged.
func (m *Moderator) Censor(text string) (string, []string) {
	runes := []rune(text)
	terms := m.machine.MultiPatternSearch(normalize(runes), false)
	if len(terms) == 0 {
		return text, nil
	}

	found := make([]string, 0, len(terms))
	seen := make(map[string]struct{})
	for _, term := range terms {
		word := string(term.Word)
		if _, ok := seen[word]; !ok {
			seen[word] = struct{}{}
			found = append(found, word)
		}
		for i := term.Pos; i < term.Pos+len(term.Word) && i < len(runes); i++ {
			runes[i] = m.replacement
		}
	}

	censored := string(runes)
	m.log.Info("censored message text",
		"words", found,
		"language", LanguageOf(text),
	)
	return censored, found
}

// LanguageOf reports the detected natural language of the text, or
// "unknown" when detection is unreliable.
func LanguageOf(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "unknown"
	}
	return info.Lang.String()
}

func normalize(runes []rune) []rune {
	normalized := make([]rune, len(runes))
	for i, r := range runes {
		lower := unicode.ToLower(r)
		if plain, ok := leet[lower]; ok {
			lower = plain
		}
		normalized[i] = lower
	}
	return normalized
}
