package translate

const (
	defaultMinTokens = 100
	defaultMaxTokens = 4096
)

// ApplyMaxTokensPolicy sets, clamps, or strips max_tokens on the
// translated request according to the configured limits.
//
// maxLimit is "ignore" (never set), "request" (pass the caller's value
// through when present), or a positive integer ceiling. minLimit is
// "ignore" (floor 0) or a positive integer floor, default 100. Any
// unrecognized maxLimit clamps into [100, 4096].
func ApplyMaxTokensPolicy(req map[string]any, maxLimit, minLimit any) {
	requested, hasRequested := intValue(req["max_tokens"])

	delete(req, "max_tokens")

	switch limit := normalize(maxLimit).(type) {
	case string:
		switch limit {
		case "ignore":
			return
		case "request":
			if hasRequested {
				req["max_tokens"] = requested
			}

			return
		}
	case int:
		floor := minFloor(minLimit)

		value := requested
		if !hasRequested {
			value = floor
		}

		req["max_tokens"] = clamp(value, floor, limit)

		return
	}

	value := requested
	if !hasRequested {
		value = defaultMinTokens
	}

	req["max_tokens"] = clamp(value, defaultMinTokens, defaultMaxTokens)
}

func minFloor(minLimit any) int {
	switch limit := normalize(minLimit).(type) {
	case string:
		if limit == "ignore" {
			return 0
		}
	case int:
		return limit
	}

	return defaultMinTokens
}

// normalize collapses the numeric types TOML and JSON decoding produce
// into a plain int, leaving strings alone.
func normalize(v any) any {
	if n, ok := intValue(v); ok {
		return n
	}

	if s, ok := v.(string); ok {
		return s
	}

	return nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}

	if value > high {
		return high
	}

	return value
}
