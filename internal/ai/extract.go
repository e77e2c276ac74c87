package ai

// ExtractJSONObject returns the first balanced {...} object in text. Braces
// inside JSON strings and escaped quotes are ignored while balancing.
func ExtractJSONObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := range len(text) {
		c := text[i]

		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", ErrNoJSONObject
}
