// Package moderation censors disallowed words in outgoing messages.
package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"strings"

	errs "pairchat/errors"
)

//go:embed wordlists/*.txt
var wordlists embed.FS

// LoadWordLists reads every embedded word list. Lines are lowercased;
// blanks and '#' comments are skipped.
func LoadWordLists() ([]string, error) {
	entries, err := wordlists.ReadDir("wordlists")
	if err != nil {
		return nil, fmt.Errorf("read word lists: %v", err)
	}

	var words []string
	for _, entry := range entries {
		content, err := wordlists.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read word list %s: %v", entry.Name(), err)
		}
		scanner := bufio.NewScanner(bytes.NewReader(content))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, strings.ToLower(line))
		}
	}
	if len(words) == 0 {
		return nil, errs.ErrEmptyWords
	}
	return words, nil
}
