package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NoChoice never matches a valid option index.
const NoChoice = -1

// CoerceIndex turns a stored correct-answer value into an index.
// Integers and numeric strings are accepted; anything else is 0.
func CoerceIndex(v any) int {
	if n, ok := toInt(v); ok {
		return n
	}
	return 0
}

// ParseChoice turns a submitted answer into an option index.
// Unparseable input yields NoChoice so it always grades as incorrect.
func ParseChoice(v any) int {
	if n, ok := toInt(v); ok {
		return n
	}
	return NoChoice
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := strconv.Atoi(x.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	default:
		return 0, false
	}
}
