package llm

import (
	"encoding/json"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	return stripFence(text, "json")
}

// stripFence removes a surrounding ``` fence, with an optional language line.
func stripFence(text, lang string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if strings.HasPrefix(asciiLower(text), lang) {
		text = text[len(lang):]
	} else if idx := strings.Index(text, "\n"); idx >= 0 {
		// Skip a language identifier on the first line
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {<") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// ExtractJSONObject returns the first syntactically valid JSON object in text,
// tolerating prose, code fences and malformed candidates before it.
func ExtractJSONObject(text string) (string, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > 0 {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", &ParseError{Message: "no JSON object found in response"}
}

// DecodeJSONObject extracts the first JSON object in text and decodes it into v.
func DecodeJSONObject(text string, v any) error {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Message: "JSON object does not match expected shape", Cause: err}
	}
	return nil
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ExtractHTMLDocument isolates a complete HTML document from text, from
// <!DOCTYPE html> (or <html) through the last </html>.
func ExtractHTMLDocument(text string) (string, error) {
	text = stripFence(text, "html")
	lower := asciiLower(text)

	start := strings.Index(lower, "<!doctype html")
	if start < 0 {
		start = strings.Index(lower, "<html")
	}
	if start < 0 {
		return "", &ParseError{Message: "no document start marker found"}
	}

	end := strings.LastIndex(lower, "</html>")
	if end < start {
		return "", &ParseError{Message: "no document end marker found"}
	}
	return text[start : end+len("</html>")], nil
}

// asciiLower lowercases only A-Z so byte offsets in the result match s.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
