package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"scrolly/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates initialized empty reporter.
func (conf *ReporterConfig) Prepare() (*Report, error) {

	r := &Report{entries: make(map[string]entry)}

	if f, err := os.Create(conf.Destination); err == nil {
		r.file = f
	} else if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err == nil {
		r.file = f
	} else {
		return nil, fmt.Errorf("unable to create report: %w", err)
	}
	return r, nil
}

type entry struct {
	path  string
	stamp time.Time
	data  []byte
}

// Report accumulates information necessary to prepare full debug report.
// NOTE: presently not to be used concurrently!
type Report struct {
	entries map[string]entry
	file    *os.File
}

// Name returns name of underlying file.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store saves path to a file or directory to be put in the final archive
// later. Ignored quietly when no report has been requested.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if old, exists := r.entries[name]; exists && old.path != path && old.data == nil {
		// Somewhere I do not know what I am doing.
		panic(fmt.Sprintf("Attempt to overwrite file in the report for [%s]: was %s, now %s", name, old.path, path))
	}
	e := entry{path: path, stamp: time.Now()}
	if p, err := filepath.Abs(path); err == nil {
		e.path = p
	}
	r.entries[name] = e
}

// StoreData saves binary data to be put in the final archive later as a file
// under requested name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.entries[name] = entry{stamp: time.Now(), data: bytes.Clone(data)}
}

// Close finalizes debug report.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	w := zip.NewWriter(r.file)
	defer w.Close()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e := r.entries[name]
		if e.data != nil {
			if err := writeReportData(w, name, e); err != nil {
				return fmt.Errorf("unable to store data in report (%s): %w", name, err)
			}
			continue
		}
		fi, err := os.Stat(e.path)
		if err != nil {
			// entry disappeared before the report was finalized, not fatal
			continue
		}
		if fi.IsDir() {
			err = filepath.Walk(e.path, func(path string, info os.FileInfo, err error) error {
				if err != nil || !info.Mode().IsRegular() {
					return err
				}
				rel, err := filepath.Rel(e.path, path)
				if err != nil {
					return err
				}
				return writeReportFile(w, filepath.ToSlash(filepath.Join(name, rel)), path, info.ModTime())
			})
		} else {
			err = writeReportFile(w, name, e.path, fi.ModTime())
		}
		if err != nil {
			return fmt.Errorf("unable to store file in report (%s): %w", name, err)
		}
	}
	return nil
}

func writeReportData(w *zip.Writer, name string, e entry) error {
	f, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: e.stamp})
	if err != nil {
		return err
	}
	_, err = f.Write(e.data)
	return err
}

func writeReportFile(w *zip.Writer, name, path string, stamp time.Time) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	f, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: stamp})
	if err != nil {
		return err
	}
	_, err = io.Copy(f, in)
	return err
}
