package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed means no JSON value of the wanted shape was found.
var ErrParseFailed = errors.New("no json document found")

var fence = regexp.MustCompile("(?s)```(?:json)?[ \t]*\r?\n?(.*?)\r?\n?```")

// Parse decodes content as T. Decision files are often copied out of chat or
// markdown, so when the whole text is not JSON each fenced block is tried in
// order and the first that decodes wins.
func Parse[T any](content string) (T, error) {
	var out T
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return out, nil
	}

	for _, m := range fence.FindAllStringSubmatch(content, -1) {
		var candidate T
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &candidate); err == nil {
			return candidate, nil
		}
	}

	return out, fmt.Errorf("%w in %s", ErrParseFailed, preview(content))
}

func preview(s string) string {
	const limit = 40
	if r := []rune(s); len(r) > limit {
		return fmt.Sprintf("%q...", string(r[:limit]))
	}
	return fmt.Sprintf("%q", s)
}
