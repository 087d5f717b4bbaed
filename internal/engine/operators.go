package engine

import (
	"fmt"
	"net/netip"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/capsim/capsim/internal/core"
)

// evaluateLeaf checks a single leaf condition against the request's
// attributes. It is pure and total: a missing attribute or an
// uninterpretable value fails the leaf, it never errors.
func evaluateLeaf(cond core.Condition, attributes core.AttributeSet) (bool, string) {
	val, exists := attributes[cond.Key]

	switch cond.Operator {
	case core.OpExists:
		if !exists {
			return false, fmt.Sprintf("attribute '%s' does not exist", cond.Key)
		}
		return true, ""

	case core.OpNotExists:
		if exists {
			return false, fmt.Sprintf("attribute '%s' exists", cond.Key)
		}
		return true, ""
	}

	if !exists {
		return false, fmt.Sprintf("attribute '%s' missing", cond.Key)
	}

	switch cond.Operator {
	case core.OpEqual:
		if !deepEqual(val, cond.Value) {
			return false, fmt.Sprintf("expected '%v' to equal '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpNotEqual:
		if deepEqual(val, cond.Value) {
			return false, fmt.Sprintf("expected '%v' to not equal '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpContains:
		// check if {val} contains {cond.Value}
		// e.g. groups contains "admins"
		if !contains(val, cond.Value) {
			return false, fmt.Sprintf("value '%v' does not contain '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpIn:
		// check if {cond.Value} contains {val}
		// e.g. location in ["US", "CA"]
		if !contains(cond.Value, val) {
			return false, fmt.Sprintf("value '%v' not in list '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpNotIn:
		if contains(cond.Value, val) {
			return false, fmt.Sprintf("value '%v' found in list '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpIntersects:
		if !intersects(val, cond.Value) {
			return false, fmt.Sprintf("value '%v' shares no element with '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpRange:
		return matchRange(cond, val)

	case core.OpTimeBetween:
		return matchTimeBetween(cond, val)

	case core.OpInNetwork:
		return matchInNetwork(cond, val)
	}

	return false, fmt.Sprintf("unknown operator '%s' in condition", cond.Operator)
}

// matchRange checks a numeric value against an inclusive [min, max] pair.
func matchRange(cond core.Condition, val any) (bool, string) {
	num, ok := toFloat(val)
	if !ok {
		return false, fmt.Sprintf("attribute '%s' is not numeric ('%v')", cond.Key, val)
	}

	bounds := toSlice(cond.Value)
	if len(bounds) != 2 {
		return false, fmt.Sprintf("range for '%s' must be [min, max], got '%v'", cond.Key, cond.Value)
	}
	low, okLow := toFloat(bounds[0])
	high, okHigh := toFloat(bounds[1])
	if !okLow || !okHigh {
		return false, fmt.Sprintf("range bounds for '%s' are not numeric ('%v')", cond.Key, cond.Value)
	}

	if num < low || num > high {
		return false, fmt.Sprintf("value %v outside range [%v, %v]", num, low, high)
	}
	return true, ""
}

// matchTimeBetween normalizes both bounds and the test value to
// minutes-of-day before comparing. A window with start > end wraps across
// midnight: 22:00-06:00 matches value >= start OR value <= end.
func matchTimeBetween(cond core.Condition, val any) (bool, string) {
	minutes, err := minutesOfDay(val)
	if err != nil {
		return false, fmt.Sprintf("attribute '%s' is not a clock value: %v", cond.Key, err)
	}

	bounds := toSlice(cond.Value)
	if len(bounds) != 2 {
		return false, fmt.Sprintf("time window for '%s' must be [start, end], got '%v'", cond.Key, cond.Value)
	}
	start, err := minutesOfDay(bounds[0])
	if err != nil {
		return false, fmt.Sprintf("invalid window start '%v': %v", bounds[0], err)
	}
	end, err := minutesOfDay(bounds[1])
	if err != nil {
		return false, fmt.Sprintf("invalid window end '%v': %v", bounds[1], err)
	}

	var inside bool
	if start > end {
		inside = minutes >= start || minutes <= end
	} else {
		inside = minutes >= start && minutes <= end
	}
	if !inside {
		return false, fmt.Sprintf("time %02d:%02d outside window %02d:%02d-%02d:%02d",
			minutes/60, minutes%60, start/60, start%60, end/60, end%60)
	}
	return true, ""
}

// matchInNetwork checks a pre-resolved address against a list of CIDR
// prefixes. A bare address in the list is treated as a /32 (or /128).
func matchInNetwork(cond core.Condition, val any) (bool, string) {
	addrStr, ok := val.(string)
	if !ok {
		return false, fmt.Sprintf("attribute '%s' is not an address string ('%v')", cond.Key, val)
	}
	addr, err := netip.ParseAddr(addrStr)
	if err != nil {
		return false, fmt.Sprintf("attribute '%s' is not a valid address: %v", cond.Key, err)
	}

	for _, raw := range toSlice(cond.Value) {
		cidr, ok := raw.(string)
		if !ok {
			continue
		}
		if prefix, err := netip.ParsePrefix(cidr); err == nil {
			if prefix.Contains(addr) {
				return true, ""
			}
			continue
		}
		// bare address, exact match
		if other, err := netip.ParseAddr(cidr); err == nil && other == addr {
			return true, ""
		}
	}
	return false, fmt.Sprintf("address '%s' not in any of '%v'", addrStr, cond.Value)
}

// minutesOfDay converts "HH:MM" strings and time.Time values to minutes
// since midnight.
func minutesOfDay(val any) (int, error) {
	switch v := val.(type) {
	case time.Time:
		return v.Hour()*60 + v.Minute(), nil
	case string:
		parts := strings.SplitN(v, ":", 2)
		if len(parts) != 2 {
			return 0, fmt.Errorf("expected HH:MM, got '%s'", v)
		}
		hour, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid hour in '%s'", v)
		}
		minute, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid minute in '%s'", v)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return 0, fmt.Errorf("clock value '%s' out of bounds", v)
		}
		return hour*60 + minute, nil
	default:
		return 0, fmt.Errorf("unsupported clock type %T", val)
	}
}

func deepEqual(a, b any) bool {
	// numbers from YAML/JSON arrive as mixed int/uint64/float64
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func contains(container, item any) bool {
	// handle string contains substring
	if str, ok := container.(string); ok {
		if subStr, ok := item.(string); ok {
			return strings.Contains(str, subStr)
		}
	}

	// handle slice/array contains
	v := reflect.ValueOf(container)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if deepEqual(v.Index(i).Interface(), item) {
				return true
			}
		}
	}

	return false
}

func intersects(a, b any) bool {
	for _, item := range toSlice(a) {
		if contains(b, item) {
			return true
		}
	}
	return false
}

func toSlice(val any) []any {
	v := reflect.ValueOf(val)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = v.Index(i).Interface()
	}
	return out
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
