package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"scrolly/css"
)

// LoadNarrative reads and validates the step configuration document. All
// problems found are aggregated into a single error - a broken narrative is
// never partially usable.
func LoadNarrative(path string) (*Narrative, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read narrative config: %w", err)
	}

	var n Narrative
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&n); err != nil {
		return nil, fmt.Errorf("unable to decode narrative config (%s): %w", path, err)
	}
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("invalid narrative config (%s): %w", path, err)
	}
	return &n, nil
}

// LoadAux reads the optional auxiliary entity dataset. A missing file is not
// an error - the caller gets nil and dynamic anchors are dropped.
func LoadAux(path string) (*AuxDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read entity dataset: %w", err)
	}

	var aux AuxDataset
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return nil, fmt.Errorf("unable to decode entity dataset (%s): %w", path, err)
	}
	return &aux, nil
}

// Validate checks everything that would corrupt timeline or layer invariants
// later. Degenerate but harmless states (empty chart lists on invisible
// directives, odd grid counts) pass.
func (n *Narrative) Validate() (err error) {
	if len(n.Steps) == 0 {
		return fmt.Errorf("narrative has no steps")
	}
	for i := range n.Steps {
		err = multierr.Append(err, validateStep(i, &n.Steps[i]))
	}
	return err
}

func validateStep(i int, rs *RawStep) (err error) {
	at := func(format string, args ...any) error {
		return fmt.Errorf("step %d (%s): %s", i, rs.ID, fmt.Sprintf(format, args...))
	}

	if rs.Chart != nil && rs.Chart.Visible && rs.Map != nil && rs.Map.Visible {
		// the vector scene can host only one of them at a time
		err = multierr.Append(err, at("chart and map cannot both be visible"))
	}

	if rs.ScrollHeight != "" {
		if _, e := css.ParseLength(rs.ScrollHeight); e != nil {
			err = multierr.Append(err, at("bad scrollHeight: %v", e))
		}
	}

	if c := rs.Chart; c != nil && c.Visible {
		switch c.Layout {
		case "", "single", "dual", "grid":
		default:
			err = multierr.Append(err, at("unknown chart layout %q", c.Layout))
		}
		if len(c.Charts) == 0 {
			err = multierr.Append(err, at("visible chart directive has no charts"))
		}
		for j := range c.Charts {
			s := &c.Charts[j]
			if s.ID == "" || s.Type == "" || s.DataFile == "" {
				err = multierr.Append(err, at("chart %d is missing id, type or dataFile", j))
			}
			switch s.DataFormat {
			case "", "json", "csv", "auto":
			default:
				err = multierr.Append(err, at("chart %q has unknown dataFormat %q", s.ID, s.DataFormat))
			}
		}
		if c.Grid != nil {
			for r, cols := range c.Grid.RowPattern {
				if cols < 1 {
					err = multierr.Append(err, at("grid rowPattern[%d] must be >= 1, got %d", r, cols))
				}
			}
		}
	}

	if m := rs.Map; m != nil && m.Visible && m.Zoom <= 0 {
		err = multierr.Append(err, at("map zoom must be positive, got %v", m.Zoom))
	}

	return err
}
