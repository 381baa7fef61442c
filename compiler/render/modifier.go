package render

import (
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.Und)

// applyModifier transforms a variable value. The modifier set is
// closed; callers report InvalidVariableModifier when ok is false.
func applyModifier(value, modifier string) (string, bool) {
	switch modifier {
	case "uppercase":
		return strings.ToUpper(value), true
	case "lowercase":
		return strings.ToLower(value), true
	case "titlecase":
		return titler.String(value), true
	case "camelcase":
		return inflect.CamelizeDownFirst(value), true
	case "pascalcase":
		return inflect.Camelize(value), true
	case "snakecase":
		return inflect.Underscore(value), true
	case "split_period_first":
		return splitFirst(value, "."), true
	case "split_period_last":
		return splitLast(value, "."), true
	case "split_dash_first":
		return splitFirst(value, "-"), true
	case "split_dash_last":
		return splitLast(value, "-"), true
	default:
		return value, false
	}
}

func splitFirst(value, sep string) string {
	if i := strings.Index(value, sep); i >= 0 {
		return value[:i]
	}
	return value
}

func splitLast(value, sep string) string {
	if i := strings.LastIndex(value, sep); i >= 0 {
		return value[i+len(sep):]
	}
	return value
}
