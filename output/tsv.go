package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/logging"
)

// TSVWriter writes tab separated files with a header row
type TSVWriter struct{}

func (TSVWriter) Extension() string { return ".tsv" }

// WriteRecords writes header then one row per record to path. The sheet name is unused.
func (TSVWriter) WriteRecords(path string, _ string, header []string, records []entities.Record) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(file)
	w.Comma = '\t'

	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	for _, r := range records {
		if err := w.Write(r.Values()); err != nil {
			return fmt.Errorf("failed to write %s to %s: %w", r.Entry(), path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	logging.Debug("TSV written", "path", path, "rows", len(records))
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}
