package config

import "fmt"

// Specification of requested frame output type.
type OutputFmt int

const (
	OutputFmtSVG OutputFmt = iota
	OutputFmtPNG
)

var outputFmtNames = map[OutputFmt]string{
	OutputFmtSVG: "svg",
	OutputFmtPNG: "png",
}

func (o OutputFmt) String() string {
	if n, ok := outputFmtNames[o]; ok {
		return n
	}
	// this should never happen
	panic("unsupported format requested")
}

func (o OutputFmt) Ext() string {
	return "." + o.String()
}

func ParseOutputFmt(name string) (OutputFmt, error) {
	for f, n := range outputFmtNames {
		if n == name {
			return f, nil
		}
	}
	return OutputFmtSVG, fmt.Errorf("%s is not a valid OutputFmt", name)
}

func OutputFmtNames() []string {
	return []string{OutputFmtSVG.String(), OutputFmtPNG.String()}
}
