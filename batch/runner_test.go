package batch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/metrics"
	"github.com/giygas/druginfo/openfda"
	"github.com/giygas/druginfo/seer"
	"github.com/giygas/druginfo/upstream"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// stubLookup answers from a map; entries not in the map fail with err
type stubLookup[R entities.Record] struct {
	known map[string]R
	err   error
	calls []string
}

func (s *stubLookup[R]) Lookup(_ context.Context, entry string) (R, error) {
	s.calls = append(s.calls, entry)
	if r, ok := s.known[entry]; ok {
		return r, nil
	}
	var zero R
	return zero, s.err
}

func TestRunKeepsOneRecordPerEntryInOrder(t *testing.T) {
	fda := &stubLookup[entities.FDARecord]{
		known: map[string]entities.FDARecord{
			"aspirin": {Input: "aspirin", Found: true, GenericName: "ASPIRIN"},
		},
		err: &upstream.TransportError{Service: "fda", StatusCode: 404, Expected: 200},
	}
	seerLookup := &stubLookup[entities.SeerRecord]{
		known: map[string]entities.SeerRecord{
			"imatinib": {Input: "imatinib", Found: true, Name: "Imatinib"},
		},
		err: seer.ErrNotFound,
	}
	var diag bytes.Buffer

	entries := []string{"imatinib", "aspirin", "unknown", "aspirin"}
	result, err := NewRunner(fda, seerLookup, &diag).Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.FDA) != len(entries) || len(result.Seer) != len(entries) {
		t.Fatalf("lengths = %d/%d, want %d", len(result.FDA), len(result.Seer), len(entries))
	}
	for i, entry := range entries {
		if result.FDA[i].Input != entry || result.Seer[i].Input != entry {
			t.Errorf("record %d entries = %q/%q, want %q", i, result.FDA[i].Input, result.Seer[i].Input, entry)
		}
	}

	wantFDAFound := []bool{false, true, false, true}
	wantSeerFound := []bool{true, false, false, false}
	for i := range entries {
		if result.FDA[i].Found != wantFDAFound[i] {
			t.Errorf("FDA[%d].Found = %v, want %v", i, result.FDA[i].Found, wantFDAFound[i])
		}
		if result.Seer[i].Found != wantSeerFound[i] {
			t.Errorf("Seer[%d].Found = %v, want %v", i, result.Seer[i].Found, wantSeerFound[i])
		}
	}

	if !reflect.DeepEqual(fda.calls, entries) || !reflect.DeepEqual(seerLookup.calls, entries) {
		t.Errorf("calls = %v / %v, want each entry once in order", fda.calls, seerLookup.calls)
	}

	wantDiag := strings.Join([]string{
		"OPEN FDA: Cannot find imatinib",
		"OPEN FDA: Cannot find unknown",
		"SEER Cancer.gov: Cannot find aspirin",
		"SEER Cancer.gov: Cannot find unknown",
		"SEER Cancer.gov: Cannot find aspirin",
	}, "\n") + "\n"
	if diag.String() != wantDiag {
		t.Errorf("diagnostics =\n%s\nwant\n%s", diag.String(), wantDiag)
	}
}

func TestRunMapsFailuresToNotFoundRecords(t *testing.T) {
	// The stub returns a zero record on failure; the runner must still emit the entry
	fda := &stubLookup[entities.FDARecord]{err: errors.New("boom")}
	seerLookup := &stubLookup[entities.SeerRecord]{err: errors.New("boom")}

	result, err := NewRunner(fda, seerLookup, nil).Run(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.FDA[0] != entities.NewFDANotFound("x") {
		t.Errorf("FDA record = %+v", result.FDA[0])
	}
	if result.Seer[0] != entities.NewSeerNotFound("x") {
		t.Errorf("Seer record = %+v", result.Seer[0])
	}
}

func TestRunEmptyBatch(t *testing.T) {
	result, err := NewRunner(&stubLookup[entities.FDARecord]{}, &stubLookup[entities.SeerRecord]{}, nil).
		Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.FDA) != 0 || len(result.Seer) != 0 {
		t.Errorf("Expected empty results, got %d/%d", len(result.FDA), len(result.Seer))
	}
}

func TestRunCountsOutcomes(t *testing.T) {
	found := metrics.LookupsTotal.WithLabelValues("seer", metrics.OutcomeFound)
	notFound := metrics.LookupsTotal.WithLabelValues("seer", metrics.OutcomeNotFound)
	beforeFound, beforeNotFound := testutil.ToFloat64(found), testutil.ToFloat64(notFound)

	seerLookup := &stubLookup[entities.SeerRecord]{
		known: map[string]entities.SeerRecord{"a": {Input: "a", Found: true}},
		err:   seer.ErrNotFound,
	}
	_, err := NewRunner(&stubLookup[entities.FDARecord]{err: openfda.ErrNotFound}, seerLookup, nil).
		Run(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := testutil.ToFloat64(found) - beforeFound; got != 1 {
		t.Errorf("found delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(notFound) - beforeNotFound; got != 2 {
		t.Errorf("not_found delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.BatchEntries); got != 3 {
		t.Errorf("batch entries = %v, want 3", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRunDiagnosticWriteFailure(t *testing.T) {
	_, err := NewRunner(&stubLookup[entities.FDARecord]{err: openfda.ErrNotFound}, &stubLookup[entities.SeerRecord]{}, failingWriter{}).
		Run(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("Expected error when diagnostics cannot be written")
	}
}

// upstreams serves fixed openFDA and SEER*Rx answers
func upstreams(t *testing.T, detailStatus int) (fdaURL, seerURL string) {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/drug/ndc.json", func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.URL.RawQuery, "Aspirin") {
			_, _ = w.Write([]byte(`{"meta":{"results":{"total":1}},"results":[{"brand_name":"Aspirin","generic_name":"ASPIRIN","route":["ORAL"]}]}`))
			return
		}
		http.Error(w, `{"error":{"code":"NOT_FOUND"}}`, http.StatusNotFound)
	})
	r.Get("/rest/rx/{version}", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("q") == "imatinib" {
			_, _ = w.Write([]byte(`{"total":2,"results":[{"id":"x1","name":"Imatinib Mesylate","score":5},{"id":"x2","name":"Imatinib","score":2}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"total":0,"results":[]}`))
	})
	r.Get("/rest/rx/{version}/id/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(detailStatus)
		_, _ = w.Write([]byte(`{"name":"Imatinib","category":["Chemotherapy"],"remarks":"a\nb"}`))
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server.URL + "/drug/ndc.json", server.URL
}

func newRealRunner(t *testing.T, fdaURL, seerURL string) *Runner {
	t.Helper()
	fdaSession, err := openfda.NewSession(fdaURL, "k", 5*time.Second, 0)
	if err != nil {
		t.Fatal(err)
	}
	seerSession, err := seer.NewSession(seerURL, "k", 5*time.Second, 0)
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(openfda.NewClient(fdaSession), seer.NewClient(seerSession, "latest"), nil)
}

func TestRunAgainstUpstreamsIsIdempotent(t *testing.T) {
	fdaURL, seerURL := upstreams(t, http.StatusOK)
	entries := []string{"aspirin", "imatinib", "nothing"}

	first, err := newRealRunner(t, fdaURL, seerURL).Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := newRealRunner(t, fdaURL, seerURL).Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Replaying the batch changed the output:\n%+v\n%+v", first, second)
	}

	if !first.FDA[0].Found || first.FDA[1].Found || first.FDA[2].Found {
		t.Errorf("Unexpected FDA outcomes: %+v", first.FDA)
	}
	want := entities.SeerRecord{Input: "imatinib", Found: true, Name: "Imatinib", Category: "Chemotherapy", Remarks: "a b"}
	if first.Seer[1] != want {
		t.Errorf("Seer[1] = %+v, want %+v", first.Seer[1], want)
	}
}

func TestRunDetailFailureLeavesEmptyRecord(t *testing.T) {
	fdaURL, seerURL := upstreams(t, http.StatusServiceUnavailable)

	result, err := newRealRunner(t, fdaURL, seerURL).Run(context.Background(), []string{"imatinib"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Seer[0] != entities.NewSeerNotFound("imatinib") {
		t.Errorf("Expected fully empty not-found record, got %+v", result.Seer[0])
	}
}
