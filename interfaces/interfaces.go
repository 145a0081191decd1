// Package interfaces defines the contracts between the batch orchestrator,
// the reference service clients and the output writers, so each side can be
// replaced in tests.
package interfaces

import (
	"context"

	"github.com/giygas/druginfo/entities"
)

// Lookup resolves one entry against one reference service.
// Implementations never panic on upstream failures: the returned record is
// always usable (the not-found record when err != nil) and err only explains
// why the entry was not found.
type Lookup[R entities.Record] interface {
	Lookup(ctx context.Context, entry string) (R, error)
}

// FDALookup is implemented by *openfda.Client
type FDALookup = Lookup[entities.FDARecord]

// SeerLookup is implemented by *seer.Client
type SeerLookup = Lookup[entities.SeerRecord]

// RecordWriter serializes the records of one service to a destination path
type RecordWriter interface {
	// Extension returns the file extension, including the dot
	Extension() string
	WriteRecords(path string, sheet string, header []string, records []entities.Record) error
}
