package football

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope is the wrapper api-football puts around every response.
type envelope[T any] struct {
	Get      string       `json:"get"`
	Errors   envelopeErrs `json:"errors"`
	Results  int          `json:"results"`
	Paging   paging       `json:"paging"`
	Response []T          `json:"response"`
}

type paging struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// envelopeErrs accepts both `[]` and `{"name":"message"}`.
type envelopeErrs map[string]string

func (e *envelopeErrs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '[' || bytes.Equal(data, []byte("null")) {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode errors list: %w", err)
		}
		if len(list) == 0 {
			*e = nil
			return nil
		}
		out := make(envelopeErrs, len(list))
		for i, msg := range list {
			out[fmt.Sprintf("error%d", i)] = msg
		}
		*e = out
		return nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode errors object: %w", err)
	}
	*e = m
	return nil
}

// standingsLeague is the element of the /standings response.
type standingsLeague struct {
	League struct {
		ID        int          `json:"id"`
		Name      string       `json:"name"`
		Season    int          `json:"season"`
		Standings [][]Standing `json:"standings"`
	} `json:"league"`
}
