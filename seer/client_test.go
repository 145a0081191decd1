package seer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/upstream"
	"github.com/go-chi/chi/v5"
)

const imatinibDetail = `{
  "id": "5a4a4b1fe3f2b2e0c2e0c0a1",
  "name": "Imatinib",
  "alternate_name": ["Gleevec", "STI-571", "Glivec"],
  "abbreviation": ["IM"],
  "category": ["Chemotherapy"],
  "subcategory": ["Tyrosine Kinase Inhibitor"],
  "primary_site": ["C421", "C169"],
  "drugs": ["Imatinib Mesylate"],
  "radiation": "N",
  "remarks": "Oral agent.\nCode as chemotherapy.\n",
  "last_modified": "2024-05-01T00:00:00Z"
}`

// fakeSeer serves the search and detail endpoints from canned bodies
type fakeSeer struct {
	mu           sync.Mutex
	searchStatus int
	searchBody   string
	detailStatus int
	detailBody   string
	apiKey       string
	query        string
	version      string
	detailIDs    []string
}

func (f *fakeSeer) server(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/rest/rx/{version}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.apiKey = req.Header.Get("X-SEERAPI-Key")
		f.query = req.URL.Query().Get("q") + "|" + req.URL.Query().Get("type")
		f.version = chi.URLParam(req, "version")
		w.WriteHeader(f.searchStatus)
		_, _ = w.Write([]byte(f.searchBody))
	})
	r.Get("/rest/rx/{version}/id/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.detailIDs = append(f.detailIDs, chi.URLParam(req, "id"))
		w.WriteHeader(f.detailStatus)
		_, _ = w.Write([]byte(f.detailBody))
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, fake *fakeSeer, version string) *Client {
	t.Helper()
	server := fake.server(t)
	session, err := NewSession(server.URL, "seer-key", 5*time.Second, 0)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return NewClient(session, version)
}

func TestResolveIDSendsRawEntry(t *testing.T) {
	fake := &fakeSeer{
		searchStatus: http.StatusOK,
		searchBody:   `{"total":2,"results":[{"id":"a","name":"Imatinib Mesylate","score":9.5},{"id":"b","name":"Imatinib","score":4.1}]}`,
	}
	client := newTestClient(t, fake, "")

	id, err := client.ResolveID(context.Background(), "imatinib 'mesylate'")
	if err != nil {
		t.Fatalf("ResolveID() error = %v", err)
	}
	if id != "a" {
		t.Errorf("ResolveID() = %s, want a", id)
	}
	if fake.query != "imatinib 'mesylate'|DRUG" {
		t.Errorf("query = %q, want raw entry and type DRUG", fake.query)
	}
	if fake.version != "latest" {
		t.Errorf("version = %q, want latest", fake.version)
	}
	if fake.apiKey != "seer-key" {
		t.Errorf("X-SEERAPI-Key = %q", fake.apiKey)
	}
}

func TestResolveIDNotFound(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"zero total", `{"total":0,"results":[]}`},
		{"missing total", `{"results":[{"id":"a","name":"A","score":1}]}`},
		{"total without results", `{"total":4,"results":[]}`},
		{"selected id empty", `{"total":1,"results":[{"name":"A","score":1}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, &fakeSeer{searchStatus: http.StatusOK, searchBody: tc.body}, "latest")
			_, err := client.ResolveID(context.Background(), "zzz")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestFetchByIDEmptyIDSkipsRequest(t *testing.T) {
	fake := &fakeSeer{detailStatus: http.StatusOK, detailBody: imatinibDetail}
	client := newTestClient(t, fake, "latest")

	_, err := client.FetchByID(context.Background(), "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if len(fake.detailIDs) != 0 {
		t.Errorf("Expected no detail request, got %v", fake.detailIDs)
	}
}

func TestFetchByIDEmptyPayload(t *testing.T) {
	for _, body := range []string{`{}`, `null`} {
		client := newTestClient(t, &fakeSeer{detailStatus: http.StatusOK, detailBody: body}, "latest")
		if _, err := client.FetchByID(context.Background(), "a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("body %s: expected ErrNotFound, got %v", body, err)
		}
	}
}

func TestLookupFound(t *testing.T) {
	fake := &fakeSeer{
		searchStatus: http.StatusOK,
		searchBody:   `{"total":1,"results":[{"id":"5a4a4b1fe3f2b2e0c2e0c0a1","name":"Imatinib","score":3.2}]}`,
		detailStatus: http.StatusOK,
		detailBody:   imatinibDetail,
	}
	client := newTestClient(t, fake, "v1.4")

	record, err := client.Lookup(context.Background(), "IMATINIB")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	want := entities.SeerRecord{
		Input:         "IMATINIB",
		Found:         true,
		AlternateName: "Gleevec, STI-571, Glivec",
		Abbreviation:  "IM",
		Category:      "Chemotherapy",
		Drugs:         "Imatinib Mesylate",
		Name:          "Imatinib",
		PrimarySite:   "C421, C169",
		Radiation:     "N",
		Subcategory:   "Tyrosine Kinase Inhibitor",
		Remarks:       "Oral agent. Code as chemotherapy. ",
	}
	if record != want {
		t.Errorf("Lookup() =\n%+v\nwant\n%+v", record, want)
	}
	if len(fake.detailIDs) != 1 || fake.detailIDs[0] != "5a4a4b1fe3f2b2e0c2e0c0a1" {
		t.Errorf("detail requests = %v", fake.detailIDs)
	}
	if fake.version != "v1.4" {
		t.Errorf("version = %q, want v1.4", fake.version)
	}
}

func TestLookupToleratesLooseTypes(t *testing.T) {
	fake := &fakeSeer{
		searchStatus: http.StatusOK,
		searchBody:   `{"total":1,"results":[{"id":17,"name":"Cisplatin","score":1}]}`,
		detailStatus: http.StatusOK,
		detailBody:   `{"name":"Cisplatin","category":"Chemotherapy","radiation":false,"drugs":null}`,
	}
	client := newTestClient(t, fake, "latest")

	record, err := client.Lookup(context.Background(), "cisplatin")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if record.Category != "Chemotherapy" || record.Radiation != "false" || record.Drugs != "" {
		t.Errorf("Unexpected record: %+v", record)
	}
	if fake.detailIDs[0] != "17" {
		t.Errorf("detail id = %s, want 17", fake.detailIDs[0])
	}
}

func TestLookupFailuresYieldEmptyRecord(t *testing.T) {
	const oneHit = `{"total":1,"results":[{"id":"a","name":"Imatinib","score":1}]}`

	testCases := []struct {
		name          string
		fake          *fakeSeer
		wantTransport bool
		wantNotFound  bool
		wantDetailHit bool
	}{
		{
			name:          "search transport failure",
			fake:          &fakeSeer{searchStatus: http.StatusUnauthorized, searchBody: `{}`},
			wantTransport: true,
		},
		{
			name:         "search without hits",
			fake:         &fakeSeer{searchStatus: http.StatusOK, searchBody: `{"total":0,"results":[]}`},
			wantNotFound: true,
		},
		{
			name:          "detail transport failure",
			fake:          &fakeSeer{searchStatus: http.StatusOK, searchBody: oneHit, detailStatus: http.StatusBadGateway, detailBody: imatinibDetail},
			wantTransport: true,
			wantDetailHit: true,
		},
		{
			name:          "detail empty payload",
			fake:          &fakeSeer{searchStatus: http.StatusOK, searchBody: oneHit, detailStatus: http.StatusOK, detailBody: `{}`},
			wantNotFound:  true,
			wantDetailHit: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.fake, "latest")

			record, err := client.Lookup(context.Background(), "imatinib")
			if err == nil {
				t.Fatal("Expected an error")
			}
			if record != entities.NewSeerNotFound("imatinib") {
				t.Errorf("Expected fully empty not-found record, got %+v", record)
			}

			var transportErr *upstream.TransportError
			if got := errors.As(err, &transportErr); got != tc.wantTransport {
				t.Errorf("transport error = %v, want %v (%v)", got, tc.wantTransport, err)
			}
			if got := errors.Is(err, ErrNotFound); got != tc.wantNotFound {
				t.Errorf("not found = %v, want %v (%v)", got, tc.wantNotFound, err)
			}
			if got := len(tc.fake.detailIDs) > 0; got != tc.wantDetailHit {
				t.Errorf("detail requested = %v, want %v", got, tc.wantDetailHit)
			}
		})
	}
}

func TestLookupMalformedDetail(t *testing.T) {
	fake := &fakeSeer{
		searchStatus: http.StatusOK,
		searchBody:   `{"total":1,"results":[{"id":"a","name":"A","score":1}]}`,
		detailStatus: http.StatusOK,
		detailBody:   `{"category": {"nested": true}}`,
	}
	client := newTestClient(t, fake, "latest")

	record, err := client.Lookup(context.Background(), "a")
	var decodeErr *upstream.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *upstream.DecodeError, got %v", err)
	}
	if record.Found {
		t.Error("Malformed detail must yield a not-found record")
	}
}
