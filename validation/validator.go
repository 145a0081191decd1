// Package validation checks input entries and batch results before they are written.
package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/druginfo/batch"
	"github.com/giygas/druginfo/entities"
)

const (
	maxEntryLength  = 200
	maxRepeatedRune = 10
	sampleSize      = 10
)

// Validator checks entries and results
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEntry reports entries that are unlikely to be drug names.
// Such entries are still looked up; callers only log the error.
func (v *Validator) ValidateEntry(entry string) error {
	if strings.TrimSpace(entry) == "" {
		return fmt.Errorf("entry cannot be empty")
	}

	if !utf8.ValidString(entry) {
		return fmt.Errorf("entry is not valid UTF-8")
	}

	if n := utf8.RuneCountInString(entry); n > maxEntryLength {
		return fmt.Errorf("entry too long: %d characters, maximum %d", n, maxEntryLength)
	}

	hasLetter := false
	for _, r := range entry {
		if unicode.IsControl(r) {
			return fmt.Errorf("entry contains control character %U", r)
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("entry contains no letters")
	}

	if hasExcessiveRepetition(entry) {
		return fmt.Errorf("entry contains excessive character repetition")
	}

	return nil
}

// ValidateResult checks that result holds exactly one record per entry and
// service, in entry order, and that every record is well formed
func (v *Validator) ValidateResult(entries []string, result *batch.Result) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if len(result.FDA) != len(entries) {
		return fmt.Errorf("fda records: got %d, want %d", len(result.FDA), len(entries))
	}
	if len(result.Seer) != len(entries) {
		return fmt.Errorf("seer records: got %d, want %d", len(result.Seer), len(entries))
	}

	for i, entry := range entries {
		if err := validateRecord(result.FDA[i], entry); err != nil {
			return fmt.Errorf("fda record %d: %w", i, err)
		}
		if err := validateRecord(result.Seer[i], entry); err != nil {
			return fmt.Errorf("seer record %d: %w", i, err)
		}
	}

	return nil
}

func validateRecord(r entities.Record, entry string) error {
	if r.Entry() != entry {
		return fmt.Errorf("entry %q out of order, want %q", r.Entry(), entry)
	}

	values := r.Values()
	if len(values) != len(r.Columns()) {
		return fmt.Errorf("%d values for %d columns", len(values), len(r.Columns()))
	}

	if !r.IsFound() {
		// Not-found records carry nothing but the entry and the flag
		for i, value := range values[2:] {
			if value != "" {
				return fmt.Errorf("not-found record for %q has %s set", entry, r.Columns()[i+2])
			}
		}
	}

	return nil
}

// QualityReport summarizes how many entries each service resolved
type QualityReport struct {
	Entries        int
	FDAFound       int
	SeerFound      int
	FoundInBoth    int
	FoundInNeither int
	// First entries neither service knows
	NeitherSample []string
}

// ReportQuality computes the report for an aligned result
func (v *Validator) ReportQuality(result *batch.Result) *QualityReport {
	report := &QualityReport{
		Entries:       len(result.FDA),
		NeitherSample: []string{},
	}

	for i := range result.FDA {
		fdaFound := result.FDA[i].Found
		seerFound := i < len(result.Seer) && result.Seer[i].Found

		if fdaFound {
			report.FDAFound++
		}
		if seerFound {
			report.SeerFound++
		}

		switch {
		case fdaFound && seerFound:
			report.FoundInBoth++
		case !fdaFound && !seerFound:
			report.FoundInNeither++
			if len(report.NeitherSample) < sampleSize {
				report.NeitherSample = append(report.NeitherSample, result.FDA[i].Input)
			}
		}
	}

	return report
}

// hasExcessiveRepetition reports the same rune repeated more than maxRepeatedRune times in a row
func hasExcessiveRepetition(input string) bool {
	var last rune
	run := 0
	for _, r := range input {
		if r == last {
			run++
		} else {
			last = r
			run = 1
		}
		if run > maxRepeatedRune {
			return true
		}
	}
	return false
}
