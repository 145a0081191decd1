package seer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ID is a SEER*Rx record identifier. The API sends strings, but numeric ids
// are accepted too and kept in their JSON text form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("seer: id must be a string or a number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

// Candidate is one search hit
type Candidate struct {
	ID    ID      `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// SelectCandidate picks the search hit for entry: the first candidate whose
// name equals entry ignoring case, otherwise the highest score with ties
// going to the earlier candidate. ok is false when there are no candidates.
func SelectCandidate(candidates []Candidate, entry string) (selected Candidate, ok bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	for _, c := range candidates {
		if strings.EqualFold(c.Name, entry) {
			return c, true
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}
