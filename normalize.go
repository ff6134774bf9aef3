package etiquette

import (
	"strconv"
	"strings"
)

// normalizeTagName lowercases name, maps space and '-' to '_', drops any
// character outside validChars, and enforces [minLen, maxLen].
func normalizeTagName(name string, minLen, maxLen int, validChars string) (string, error) {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	allowed := make(map[rune]bool, len(validChars))
	for _, r := range validChars {
		allowed[r] = true
	}

	var b strings.Builder
	for _, r := range name {
		if allowed[r] {
			b.WriteRune(r)
		}
	}
	name = b.String()

	if len(name) < minLen {
		return "", newError("TagTooShort", "tag name %q is shorter than %d characters", name, minLen)
	}
	if len(name) > maxLen {
		return "", newError("TagTooLong", "tag name %q is longer than %d characters", name, maxLen)
	}
	return name, nil
}

// normalizeExtensions splits a comma/whitespace separated extension list,
// lowercases each element, strips leading dots, and drops empties. "*" is
// passed through unchanged for the SearchEngine to interpret specially.
func normalizeExtensions(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		f = strings.TrimPrefix(f, ".")
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// normalizeUsername folds case (usernames are unique case-insensitively,
// mirroring the schema's COLLATE NOCASE column) and enforces bounds and a
// character whitelist.
func normalizeUsername(name string, minLen, maxLen int, validChars string) (string, error) {
	name = strings.ToLower(name)
	if len(name) < minLen {
		return "", newError("UsernameTooShort", "username must be at least %d characters", minLen)
	}
	if len(name) > maxLen {
		return "", newError("UsernameTooLong", "username must be at most %d characters", maxLen)
	}
	allowed := make(map[rune]bool, len(validChars))
	for _, r := range validChars {
		allowed[r] = true
	}
	for _, r := range name {
		if !allowed[r] {
			return "", newError("InvalidUsernameChars", "username %q contains an invalid character %q", name, string(r))
		}
	}
	return name, nil
}

// normalizePassword enforces the minimum password length in bytes.
func normalizePassword(password []byte, minLen int) error {
	if len(password) < minLen {
		return newError("PasswordTooShort", "password must be at least %d characters", minLen)
	}
	return nil
}

// hyphenRange is a parsed "low-high" numeric filter, with either bound
// optional. Exactly one of Low/High may be nil but not both unless the
// input was empty.
type hyphenRange struct {
	Low  *float64
	High *float64
}

// parseHyphenRange accepts "a-b", "a-", "-b", or a bare "a" (meaning
// low==high==a). Each side may use hh:mm:ss or a byte suffix (k/m/g) in
// place of a plain number. Every field this filters (width, height, area,
// bytes, duration) is non-negative, so a leading "-" always introduces an
// empty-low-bound range rather than a negative literal.
func parseHyphenRange(raw string) (hyphenRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return hyphenRange{}, nil
	}

	if !strings.Contains(raw, "-") {
		v, err := parseRangeScalar(raw)
		if err != nil {
			return hyphenRange{}, err
		}
		return hyphenRange{Low: &v, High: &v}, nil
	}

	idx := strings.Index(raw, "-")
	lowStr := strings.TrimSpace(raw[:idx])
	highStr := strings.TrimSpace(raw[idx+1:])

	var result hyphenRange
	if lowStr != "" {
		v, err := parseRangeScalar(lowStr)
		if err != nil {
			return hyphenRange{}, err
		}
		result.Low = &v
	}
	if highStr != "" {
		v, err := parseRangeScalar(highStr)
		if err != nil {
			return hyphenRange{}, err
		}
		result.High = &v
	}

	if result.Low != nil && result.High != nil && *result.Low > *result.High {
		return hyphenRange{}, newError("OutOfOrder", "range %q has low bound greater than high bound", raw)
	}
	return result, nil
}

// parseRangeScalar parses one side of a hyphen-range: a plain float, an
// hh:mm:ss duration, or a byte-suffixed size (1k, 2m, 3g).
func parseRangeScalar(s string) (float64, error) {
	if strings.Contains(s, ":") {
		return parseHMS(s)
	}
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'k', 'K', 'm', 'M', 'g', 'G':
			return parseByteSize(s)
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newError("OutOfOrder", "could not parse numeric value %q", s)
	}
	return v, nil
}

func parseHMS(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, newError("OutOfOrder", "invalid hh:mm:ss value %q", s)
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, newError("OutOfOrder", "invalid hh:mm:ss value %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}

func parseByteSize(s string) (float64, error) {
	suffix := s[len(s)-1]
	numPart := s[:len(s)-1]
	v, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, newError("OutOfOrder", "invalid byte size %q", s)
	}
	switch suffix {
	case 'k', 'K':
		return v * 1024, nil
	case 'm', 'M':
		return v * 1024 * 1024, nil
	case 'g', 'G':
		return v * 1024 * 1024 * 1024, nil
	}
	return v, nil
}
