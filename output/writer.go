// Package output serializes batch results, one file per service.
package output

import (
	"fmt"
	"strings"

	"github.com/giygas/druginfo/batch"
	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/interfaces"
)

// Supported formats
const (
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
)

// Compile-time checks
var (
	_ interfaces.RecordWriter = TSVWriter{}
	_ interfaces.RecordWriter = XLSXWriter{}
)

// ForFormat returns the writer for a --format value
func ForFormat(format string) (interfaces.RecordWriter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatTSV:
		return TSVWriter{}, nil
	case FormatXLSX:
		return XLSXWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want %s or %s)", format, FormatTSV, FormatXLSX)
	}
}

// Paths returns the FDA and SEER destinations for an output prefix
func Paths(prefix string, w interfaces.RecordWriter) (fdaPath, seerPath string) {
	return prefix + "_fda" + w.Extension(), prefix + "_seer" + w.Extension()
}

// WriteBatch writes <prefix>_fda and <prefix>_seer with w and returns both paths
func WriteBatch(w interfaces.RecordWriter, prefix string, result *batch.Result) ([]string, error) {
	fdaPath, seerPath := Paths(prefix, w)

	if err := w.WriteRecords(fdaPath, "fda", entities.FDAColumns(), entities.AsRecords(result.FDA)); err != nil {
		return nil, err
	}
	if err := w.WriteRecords(seerPath, "seer", entities.SeerColumns(), entities.AsRecords(result.Seer)); err != nil {
		return nil, err
	}

	return []string{fdaPath, seerPath}, nil
}
