// Package openfda looks drug names up in the openFDA NDC directory and
// flattens the best product into an entities.FDARecord.
package openfda

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/giygas/druginfo/entities"
	"github.com/giygas/druginfo/query"
	"github.com/giygas/druginfo/upstream"
)

// ServiceName labels the openFDA session in logs, errors and metrics
const ServiceName = "fda"

// ErrNotFound is returned when the search matched no product
var ErrNotFound = errors.New("openfda: no matching product")

// NewSession builds the openFDA session; the API key goes in a Basic authorization header
func NewSession(baseURL, apiKey string, timeout time.Duration, rateLimit int) (*upstream.Session, error) {
	return upstream.NewSession(upstream.Options{
		Service:    ServiceName,
		BaseURL:    baseURL,
		AuthHeader: "Authorization",
		AuthValue:  "Basic " + apiKey,
		Timeout:    timeout,
		RateLimit:  rateLimit,
	})
}

// Client resolves entries against the NDC directory
type Client struct {
	session *upstream.Session
}

// NewClient creates a client on top of an openFDA session
func NewClient(session *upstream.Session) *Client {
	return &Client{session: session}
}

type searchResponse struct {
	Meta *struct {
		Results *struct {
			Total *int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []Product `json:"results"`
}

// Product holds the NDC product fields that end up in the output
type Product struct {
	BrandName         string `json:"brand_name"`
	GenericName       string `json:"generic_name"`
	LabelerName       string `json:"labeler_name"`
	ActiveIngredients []struct {
		Name string `json:"name"`
	} `json:"active_ingredients"`
	PharmClass []string `json:"pharm_class"`
	Route      []string `json:"route"`
}

// SearchExpression matches the normalized entry exactly against either the
// generic or the brand name
func SearchExpression(entry string) string {
	n := query.Normalize(entry)
	return fmt.Sprintf(`(generic_name.exact:"%s"+brand_name.exact:"%s")`, n, n)
}

// encodeQuery escapes the search expression but keeps '+' and ':' literal,
// the API reads '+' as the OR separator
func encodeQuery(search string) string {
	escaped := url.QueryEscape(search)
	escaped = strings.ReplaceAll(escaped, "%2B", "+")
	escaped = strings.ReplaceAll(escaped, "%3A", ":")
	return "search=" + escaped + "&limit=1"
}

// Search returns the first product matching entry. A missing or zero result
// count is ErrNotFound; request failures are *upstream.TransportError or *upstream.DecodeError.
func (c *Client) Search(ctx context.Context, entry string) (*Product, error) {
	var resp searchResponse
	if err := c.session.GetJSON(ctx, "search", "", encodeQuery(SearchExpression(entry)), &resp); err != nil {
		return nil, err
	}

	if resp.Meta == nil || resp.Meta.Results == nil || resp.Meta.Results.Total == nil {
		return nil, ErrNotFound
	}
	if *resp.Meta.Results.Total < 1 || len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	return &resp.Results[0], nil
}

// Lookup resolves entry and flattens the match. On any failure the returned
// record is the not-found record for entry and the error says why.
func (c *Client) Lookup(ctx context.Context, entry string) (entities.FDARecord, error) {
	product, err := c.Search(ctx, entry)
	if err != nil {
		return entities.NewFDANotFound(entry), err
	}
	return Flatten(entry, product), nil
}

// Flatten copies product into a found record
func Flatten(entry string, p *Product) entities.FDARecord {
	ingredients := make([]string, 0, len(p.ActiveIngredients))
	for _, ingredient := range p.ActiveIngredients {
		ingredients = append(ingredients, ingredient.Name)
	}

	return entities.FDARecord{
		Input:             entry,
		Found:             true,
		BrandName:         strings.TrimSpace(p.BrandName),
		GenericName:       strings.TrimSpace(p.GenericName),
		ActiveIngredients: joinTrimmed(ingredients),
		LabelerName:       strings.TrimSpace(p.LabelerName),
		PharmClass:        joinTrimmed(p.PharmClass),
		Route:             joinTrimmed(p.Route),
	}
}

func joinTrimmed(values []string) string {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}
	return strings.Join(trimmed, ",")
}
