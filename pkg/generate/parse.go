package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alantheprice/appforge/pkg/plan"
)

// structuredReply is the schema every strategy expects the model to return.
// The reply is untrusted input: it either parses against this schema or the
// file generation fails. No string-level repair is attempted.
type structuredReply struct {
	Content  string         `json:"content"`
	Imports  []string       `json:"imports"`
	Exports  []string       `json:"exports"`
	Metadata map[string]any `json:"metadata"`
}

// parseReply validates a model reply against the structured schema and
// converts it into a GeneratedFile for the given task.
func parseReply(task plan.FileTask, raw string) (*GeneratedFile, error) {
	jsonStr := plan.ExtractJSON(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("reply for %s contained no JSON document", task.Path)
	}

	var reply structuredReply
	decoder := json.NewDecoder(strings.NewReader(jsonStr))
	if err := decoder.Decode(&reply); err != nil {
		return nil, fmt.Errorf("reply for %s failed schema validation: %w", task.Path, err)
	}
	if reply.Content == "" {
		return nil, fmt.Errorf("reply for %s has empty content", task.Path)
	}

	return &GeneratedFile{
		Path:     task.Path,
		Content:  reply.Content,
		Category: task.Category,
		Imports:  reply.Imports,
		Exports:  reply.Exports,
		Metadata: reply.Metadata,
	}, nil
}

// contentExtractor incrementally pulls the growing "content" field out of a
// streaming structured reply, so chunk events can be emitted before the
// reply is complete.
type contentExtractor struct {
	raw      strings.Builder
	emitted  int // length of content already handed out
}

// add appends a raw delta from the model and returns any newly available
// decoded content text.
func (e *contentExtractor) add(delta string) string {
	e.raw.WriteString(delta)

	content, _ := extractPartialContent(e.raw.String())
	if len(content) <= e.emitted {
		return ""
	}
	newText := content[e.emitted:]
	e.emitted = len(content)
	return newText
}

// extractPartialContent decodes the value of the first "content" string
// field in raw, which may still be unterminated. The bool reports whether
// the closing quote was seen.
func extractPartialContent(raw string) (string, bool) {
	marker := `"content"`
	start := strings.Index(raw, marker)
	if start < 0 {
		return "", false
	}
	rest := raw[start+len(marker):]

	// Skip to the opening quote of the value.
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t' || rest[i] == '\n' || rest[i] == ':') {
		i++
	}
	if i >= len(rest) || rest[i] != '"' {
		return "", false
	}
	i++

	var out strings.Builder
	for i < len(rest) {
		ch := rest[i]
		if ch == '"' {
			return out.String(), true
		}
		if ch == '\\' {
			if i+1 >= len(rest) {
				// Incomplete escape at the stream edge; wait for more.
				return out.String(), false
			}
			next := rest[i+1]
			switch next {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case 'r':
				out.WriteByte('\r')
			case '"':
				out.WriteByte('"')
			case '\\':
				out.WriteByte('\\')
			case '/':
				out.WriteByte('/')
			case 'u':
				if i+6 > len(rest) {
					return out.String(), false
				}
				var r rune
				if _, err := fmt.Sscanf(rest[i+2:i+6], "%04x", &r); err == nil {
					out.WriteRune(r)
				}
				i += 6
				continue
			default:
				// Unknown escape; keep it verbatim.
				out.WriteByte(next)
			}
			i += 2
			continue
		}
		out.WriteByte(ch)
		i++
	}
	return out.String(), false
}
