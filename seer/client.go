// Package seer looks drug names up in the SEER*Rx antineoplastic drug
// database. Resolution is two steps: a search picks one record id, then the
// record detail is fetched and flattened into an entities.SeerRecord.
package seer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/upstream"
)

// ServiceName labels the SEER session in logs, errors and metrics
const ServiceName = "seer"

// ErrNotFound is returned when the search has no hit or the detail is empty
var ErrNotFound = errors.New("seer: no matching drug")

// NewSession builds the SEER*Rx session; the API key goes in the X-SEERAPI-Key header
func NewSession(baseURL, apiKey string, timeout time.Duration, rateLimit int) (*upstream.Session, error) {
	return upstream.NewSession(upstream.Options{
		Service:    ServiceName,
		BaseURL:    baseURL,
		AuthHeader: "X-SEERAPI-Key",
		AuthValue:  apiKey,
		Timeout:    timeout,
		RateLimit:  rateLimit,
	})
}

// Client resolves entries against one version of the Rx database
type Client struct {
	session *upstream.Session
	version string
}

// NewClient creates a client; an empty version means "latest"
func NewClient(session *upstream.Session, version string) *Client {
	if version == "" {
		version = "latest"
	}
	return &Client{session: session, version: version}
}

type searchResponse struct {
	Total   int         `json:"total"`
	Results []Candidate `json:"results"`
}

// Detail is the part of a SEER*Rx record that ends up in the output
type Detail struct {
	AlternateName stringList `json:"alternate_name"`
	Abbreviation  stringList `json:"abbreviation"`
	Category      stringList `json:"category"`
	Drugs         stringList `json:"drugs"`
	Name          scalar     `json:"name"`
	PrimarySite   stringList `json:"primary_site"`
	Radiation     scalar     `json:"radiation"`
	Remarks       scalar     `json:"remarks"`
	Subcategory   stringList `json:"subcategory"`
}

func (c *Client) basePath() string {
	return "rest/rx/" + url.PathEscape(c.version)
}

// ResolveID searches drugs for entry, sent as typed, and returns the id picked
// by SelectCandidate
func (c *Client) ResolveID(ctx context.Context, entry string) (ID, error) {
	params := url.Values{}
	params.Set("type", "DRUG")
	params.Set("q", entry)

	var resp searchResponse
	if err := c.session.GetJSON(ctx, "search", c.basePath(), params.Encode(), &resp); err != nil {
		return "", err
	}
	if resp.Total < 1 {
		return "", ErrNotFound
	}

	selected, ok := SelectCandidate(resp.Results, entry)
	if !ok || selected.ID == "" {
		return "", ErrNotFound
	}
	return selected.ID, nil
}

// FetchByID returns the record detail for id. An empty id short-circuits to
// ErrNotFound without a request; a null or empty object body is ErrNotFound too.
func (c *Client) FetchByID(ctx context.Context, id ID) (*Detail, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	body, err := c.session.Get(ctx, "detail", c.basePath()+"/id/"+url.PathEscape(string(id)), "")
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &upstream.DecodeError{Service: ServiceName, Err: err}
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	var detail Detail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, &upstream.DecodeError{Service: ServiceName, Err: err}
	}
	return &detail, nil
}

// Lookup runs ResolveID then FetchByID. On any failure the returned record is
// the not-found record for entry and the error says why.
func (c *Client) Lookup(ctx context.Context, entry string) (entities.SeerRecord, error) {
	id, err := c.ResolveID(ctx, entry)
	if err != nil {
		return entities.NewSeerNotFound(entry), err
	}

	detail, err := c.FetchByID(ctx, id)
	if err != nil {
		return entities.NewSeerNotFound(entry), fmt.Errorf("fetch id %s: %w", id, err)
	}

	return Flatten(entry, detail), nil
}

// Flatten copies detail into a found record. Histology and note stay empty.
func Flatten(entry string, d *Detail) entities.SeerRecord {
	return entities.SeerRecord{
		Input:         entry,
		Found:         true,
		AlternateName: d.AlternateName.join(),
		Abbreviation:  d.Abbreviation.join(),
		Category:      d.Category.join(),
		Drugs:         d.Drugs.join(),
		Name:          string(d.Name),
		PrimarySite:   d.PrimarySite.join(),
		Radiation:     string(d.Radiation),
		Subcategory:   d.Subcategory.join(),
		Remarks:       strings.ReplaceAll(string(d.Remarks), "\n", " "),
	}
}

// stringList decodes a JSON array of strings, or a bare string as a one element list
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("expected a list of strings: %w", err)
	}
	*l = values
	return nil
}

func (l stringList) join() string {
	return strings.Join(l, ", ")
}

// scalar decodes a JSON string as is and any other scalar as its JSON text
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = scalar(v)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("expected a scalar, got %s", data)
	default:
		*s = scalar(data)
	}
	return nil
}
