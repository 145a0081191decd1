// Package input reads the list of drug names to look up.
package input

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/giygas/druginfo/logging"
	"golang.org/x/text/encoding/charmap"
)

const maxLineSize = 1 * 1024 * 1024

// ReadEntries reads one entry per line from path. Lines are trimmed and blank
// lines are skipped. Files that are not valid UTF-8 are decoded as ISO-8859-1.
func ReadEntries(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logging.Warn("Failed to close input file", "path", path, "error", cerr)
		}
	}()

	entries, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}
	return entries, nil
}

// Parse splits r into entries the same way ReadEntries does
func Parse(r io.Reader) ([]string, error) {
	// Some lists come from spreadsheets exported as latin-1, read everything first
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if utf8.Valid(content) {
		reader = bytes.NewReader(content)
	} else {
		logging.Debug("Input is not valid UTF-8, decoding as ISO-8859-1")
		reader = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(content))
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	entries := []string{}
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	return entries, nil
}
