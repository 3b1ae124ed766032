// Package css parses the css-length-like tokens narrative configuration uses
// for per-step scroll distances.
package css

import (
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Length is a parsed css length token. Unit is lower case ("px", "vh", "vw",
// "em", "rem" or "%"); a bare number is treated as pixels.
type Length struct {
	Value float64
	Unit  string
}

// DefaultEmSize is used when resolving font-relative units. Narrative steps
// never nest, so a single root size is enough.
const DefaultEmSize = 16.0

// ParseLength parses a single css length token ("150vh", "320px", "50%").
// Anything beyond the first token is rejected.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return Length{}, fmt.Errorf("empty length token")
	}

	l := css.NewLexer(parse.NewInputString(s))

	tt, data := l.Next()
	var out Length
	switch tt {
	case css.DimensionToken:
		unit := strings.ToLower(strings.TrimLeft(string(data), "+-.0123456789eE"))
		num := string(data[:len(data)-len(unit)])
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return Length{}, fmt.Errorf("malformed dimension %q: %w", s, err)
		}
		switch unit {
		case "px", "vh", "vw", "em", "rem":
		default:
			return Length{}, fmt.Errorf("unsupported length unit %q", unit)
		}
		out = Length{Value: v, Unit: unit}
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(string(data), "%"), 64)
		if err != nil {
			return Length{}, fmt.Errorf("malformed percentage %q: %w", s, err)
		}
		out = Length{Value: v, Unit: "%"}
	case css.NumberToken:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return Length{}, fmt.Errorf("malformed number %q: %w", s, err)
		}
		out = Length{Value: v, Unit: "px"}
	default:
		return Length{}, fmt.Errorf("not a length token: %q", s)
	}

	if tt, _ = l.Next(); tt != css.ErrorToken {
		return Length{}, fmt.Errorf("trailing garbage after length token: %q", s)
	}
	if out.Value < 0 {
		return Length{}, fmt.Errorf("negative length: %q", s)
	}
	return out, nil
}

// Resolve converts the length to pixels for the given viewport. Percentages
// resolve against viewport height, same as vh - scroll distance is vertical.
func (l Length) Resolve(viewportW, viewportH float64) float64 {
	switch l.Unit {
	case "vh":
		return l.Value / 100 * viewportH
	case "vw":
		return l.Value / 100 * viewportW
	case "%":
		return l.Value / 100 * viewportH
	case "em", "rem":
		return l.Value * DefaultEmSize
	default:
		return l.Value
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit
}
