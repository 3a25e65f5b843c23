package payload

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedRE = regexp.MustCompile("```json\\s*(\\{[\\s\\S]*?\\})\\s*```")
	braceRE  = regexp.MustCompile(`\{[\s\S]*?\}`)
)

// Extract finds one embedded structured data block in free text: a ```json
// fenced block first, then the first brace-delimited substring. A text with
// no decodable block returns nil — that is the normal outcome for a reply
// that is just prose, not an error.
func Extract(text string) Payload {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m := fencedRE.FindStringSubmatch(text); m != nil {
		if p := decode(m[1]); p != nil {
			return p
		}
	}
	if m := braceRE.FindString(text); m != "" {
		return decode(m)
	}
	return nil
}

func decode(raw string) Payload {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil
	}
	return env.toPayload()
}

// StripBlocks removes any fenced JSON block from a reply so transcripts
// replayed into the prompt contain only prose.
func StripBlocks(text string) string {
	return strings.TrimSpace(fencedRE.ReplaceAllString(text, ""))
}
