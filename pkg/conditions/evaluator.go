// Package conditions evaluates workflow trigger conditions against loosely
// typed event payloads.
package conditions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/storeflow/storeflow/pkg/models"
	"github.com/storeflow/storeflow/pkg/template"
)

// Matches reports whether every condition holds against the payload.
// An empty condition list always matches.
func Matches(conditions []models.Condition, payload map[string]any) bool {
	for _, condition := range conditions {
		value, _ := template.GetPath(payload, condition.Field)
		if !Evaluate(value, condition.Operator, condition.Value) {
			return false
		}
	}

	return true
}

// Evaluate applies one comparison operator. Missing values (nil) fail every
// operator except the negated ones, which hold by their natural semantics.
// Evaluation is pure: same inputs, same result, no side effects.
func Evaluate(value any, operator models.Operator, target any) bool {
	switch operator {
	case models.OpEquals:
		return looseEquals(value, target)
	case models.OpNotEquals:
		return !looseEquals(value, target)
	case models.OpGreaterThan:
		a, b, ok := numericPair(value, target)

		return ok && a > b
	case models.OpGreaterOrEqual:
		a, b, ok := numericPair(value, target)

		return ok && a >= b
	case models.OpLessThan:
		a, b, ok := numericPair(value, target)

		return ok && a < b
	case models.OpLessOrEqual:
		a, b, ok := numericPair(value, target)

		return ok && a <= b
	case models.OpContains:
		return value != nil && strings.Contains(asString(value), asString(target))
	case models.OpNotContains:
		return value == nil || !strings.Contains(asString(value), asString(target))
	case models.OpIn:
		return value != nil && inSequence(value, target)
	case models.OpNotIn:
		return value == nil || !inSequence(value, target)
	default:
		return false
	}
}

// looseEquals is coercing equality: numeric strings compare equal to numbers,
// matching the behavior existing workflow definitions rely on.
func looseEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if na, aOK := asNumber(a); aOK {
		if nb, bOK := asNumber(b); bOK {
			return na == nb
		}
	}

	if ba, aOK := a.(bool); aOK {
		if bb, bOK := b.(bool); bOK {
			return ba == bb
		}
	}

	return asString(a) == asString(b)
}

func inSequence(value, target any) bool {
	sequence, ok := target.([]any)
	if !ok {
		return false
	}

	for _, item := range sequence {
		if looseEquals(value, item) {
			return true
		}
	}

	return false
}

// numericPair converts both operands to float64; ordering operators fail on
// non-numeric operands rather than falling back to string comparison.
func numericPair(a, b any) (float64, float64, bool) {
	na, aOK := asNumber(a)
	nb, bOK := asNumber(b)

	return na, nb, aOK && bOK
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()

		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)

		return parsed, err == nil
	default:
		return 0, false
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
