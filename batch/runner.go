// Package batch runs an entry list through both reference services.
// Entries are looked up one at a time, first all against openFDA and then
// all against SEER*Rx; a failing entry only degrades its own record.
package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/interfaces"
	"github.com/giygas/druginfo/logging"
	"github.com/giygas/druginfo/metrics"
)

// Result holds one record per entry and service, in entry order
type Result struct {
	FDA  []entities.FDARecord
	Seer []entities.SeerRecord
}

// Runner orchestrates a batch
type Runner struct {
	fda  interfaces.FDALookup
	seer interfaces.SeerLookup
	diag io.Writer
}

// NewRunner creates a runner. diag receives one line per entry a service could
// not find; it is kept apart from the logs so operators can grep it.
func NewRunner(fda interfaces.FDALookup, seer interfaces.SeerLookup, diag io.Writer) *Runner {
	if diag == nil {
		diag = io.Discard
	}
	return &Runner{fda: fda, seer: seer, diag: diag}
}

type pass[R entities.Record] struct {
	service   string
	label     string
	diagLabel string
	lookup    interfaces.Lookup[R]
	notFound  func(entry string) R
}

// Run looks every entry up in both services. The returned slices always have
// len(entries) records. The only error is a failed write to the diagnostic writer.
func (r *Runner) Run(ctx context.Context, entries []string) (*Result, error) {
	metrics.BatchEntries.Set(float64(len(entries)))
	start := time.Now()

	fda, err := runPass(ctx, r.diag, entries, pass[entities.FDARecord]{
		service:   "fda",
		label:     "FDA",
		diagLabel: "OPEN FDA",
		lookup:    r.fda,
		notFound:  entities.NewFDANotFound,
	})
	if err != nil {
		return nil, err
	}

	seer, err := runPass(ctx, r.diag, entries, pass[entities.SeerRecord]{
		service:   "seer",
		label:     "SEER",
		diagLabel: "SEER Cancer.gov",
		lookup:    r.seer,
		notFound:  entities.NewSeerNotFound,
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Batch completed",
		"entries", len(entries),
		"fda_found", countFound(fda),
		"seer_found", countFound(seer),
		"duration", time.Since(start).String())

	return &Result{FDA: fda, Seer: seer}, nil
}

func runPass[R entities.Record](ctx context.Context, diag io.Writer, entries []string, p pass[R]) ([]R, error) {
	records := make([]R, 0, len(entries))

	for i, entry := range entries {
		logging.Info(fmt.Sprintf("%s searching for %s:", p.label, entry), "index", i)

		record, err := p.lookup.Lookup(ctx, entry)
		if err != nil {
			logging.Debug("Lookup failed", "service", p.service, "entry", entry, "error", err)
			record = p.notFound(entry)
		}

		metrics.LookupsTotal.WithLabelValues(p.service, metrics.Outcome(record.IsFound())).Inc()
		if !record.IsFound() {
			if _, werr := fmt.Fprintf(diag, "%s: Cannot find %s\n", p.diagLabel, entry); werr != nil {
				return nil, fmt.Errorf("failed to write diagnostic for %s: %w", entry, werr)
			}
		}

		records = append(records, record)
	}

	return records, nil
}

func countFound[R entities.Record](records []R) int {
	n := 0
	for _, r := range records {
		if r.IsFound() {
			n++
		}
	}
	return n
}
