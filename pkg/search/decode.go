package search

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sternrassler/gh-harvest/pkg/pagination"
)

type searchResponse struct {
	Items []pagination.Item `json:"items"`
}

// decodeItems reads a search body and returns its "items" array. A body
// without the key yields an empty slice.
func decodeItems(r io.Reader) ([]pagination.Item, error) {
	var body searchResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if body.Items == nil {
		return []pagination.Item{}, nil
	}
	return body.Items, nil
}
