package transform

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// stripFences removes a Markdown code fence around pipeline output, if any.
// Text before the opening fence is dropped along with the fence itself.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	open := strings.Index(s, "```")
	if open == -1 {
		return s
	}
	rest := s[open+3:]
	// drop the language tag line (```json, ```csv)
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	} else {
		rest = ""
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// extractJSON returns the outermost {...} span, or s unchanged
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// parseQuantity follows the receipt rules: a value with a decimal point is a
// float, anything else an integer, and every failure falls back to 1.
func parseQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	var q float64
	if strings.Contains(raw, ".") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 1
		}
		q = f
	} else {
		n, err := strconv.Atoi(raw)
		switch {
		case err == nil:
			q = float64(n)
		case errors.Is(err, strconv.ErrRange):
			// well-formed but wider than int
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil {
				return 1
			}
			q = f
		default:
			return 1
		}
	}
	if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 1
	}
	return q
}

// parseAmount extends parseQuantity with fractions used in recipes:
// "1/2", "1 1/2".
func parseAmount(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "/") {
		return parseQuantity(raw)
	}
	total := 0.0
	for _, part := range strings.Fields(raw) {
		num, den, ok := strings.Cut(part, "/")
		if !ok {
			n, err := strconv.Atoi(part)
			if err != nil {
				return 1
			}
			total += float64(n)
			continue
		}
		n, err1 := strconv.Atoi(num)
		d, err2 := strconv.Atoi(den)
		if err1 != nil || err2 != nil || d == 0 {
			return 1
		}
		total += float64(n) / float64(d)
	}
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 1
	}
	return total
}

func normalizeUnit(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" || u == "null" {
		return "count"
	}
	return u
}
