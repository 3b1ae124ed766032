package css_test

import (
	"testing"

	"scrolly/css"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		in    string
		value float64
		unit  string
	}{
		{"150vh", 150, "vh"},
		{"320px", 320, "px"},
		{"50%", 50, "%"},
		{"2.5em", 2.5, "em"},
		{"1rem", 1, "rem"},
		{"40vw", 40, "vw"},
		{"640", 640, "px"},
		{"  75vh ", 75, "vh"},
	}
	for _, tc := range tests {
		l, err := css.ParseLength(tc.in)
		if err != nil {
			t.Errorf("ParseLength(%q): %v", tc.in, err)
			continue
		}
		if l.Value != tc.value || l.Unit != tc.unit {
			t.Errorf("ParseLength(%q) = %v%s, want %v%s", tc.in, l.Value, l.Unit, tc.value, tc.unit)
		}
	}
}

func TestParseLengthRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "10pt", "-20vh", "100vh 50px", "12px;"} {
		if _, err := css.ParseLength(in); err == nil {
			t.Errorf("ParseLength(%q): expected error", in)
		}
	}
}

func TestResolve(t *testing.T) {
	vw, vh := 1200.0, 800.0
	tests := []struct {
		in   string
		want float64
	}{
		{"150vh", 1200},
		{"50vw", 600},
		{"25%", 200},
		{"320px", 320},
		{"2em", 32},
		{"640", 640},
	}
	for _, tc := range tests {
		l, err := css.ParseLength(tc.in)
		if err != nil {
			t.Fatalf("ParseLength(%q): %v", tc.in, err)
		}
		if got := l.Resolve(vw, vh); got != tc.want {
			t.Errorf("%q resolves to %v, want %v", tc.in, got, tc.want)
		}
	}
}
