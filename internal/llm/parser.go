package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jordanharb/moneytrail/internal/common"
)

// bracketedList matches the first bracketed integer list in a response,
// e.g. "[101, 102,103]". Used to recover IDs from otherwise malformed
// reasoning output.
var bracketedList = regexp.MustCompile(`\[\s*\d+(?:\s*,\s*\d+)*\s*\]`)

// cleanMarkdownWrapper strips a ```json ... ``` fence if the model wrapped
// its output in one.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}

// ExtractIDList parses a JSON integer array from a reasoning response. If
// the response is not clean JSON, the first bracketed integer list found
// anywhere in the text is used instead.
func ExtractIDList(content string) ([]int64, error) {
	cleaned := cleanMarkdownWrapper(content)

	var ids []int64
	if err := json.Unmarshal([]byte(cleaned), &ids); err == nil {
		return ids, nil
	}

	match := bracketedList.FindString(cleaned)
	if match == "" {
		return nil, fmt.Errorf("%w: no integer list found in response", common.ErrReasoningMalformed)
	}

	inner := strings.Trim(match, "[]")
	for _, part := range strings.Split(inner, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad ID %q: %v", common.ErrReasoningMalformed, part, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// ParseJSONInto decodes a reasoning response into dest, tolerating a
// markdown code fence around the JSON body.
func ParseJSONInto(content string, dest any) error {
	cleaned := cleanMarkdownWrapper(content)
	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		return fmt.Errorf("%w: %v", common.ErrReasoningMalformed, err)
	}
	return nil
}
