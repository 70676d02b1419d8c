// Package search fetches pages of the fixed GitHub repository search.
package search

import (
	"net/url"
	"strconv"
)

// Endpoint is the repository search path.
const Endpoint = "/search/repositories"

// The search is fixed: popular Python repositories, most starred first.
const (
	Query = "language:python stars:>500"
	Sort  = "stars"
	Order = "desc"
)

// DefaultPerPage is the page size used when the caller passes 0.
const DefaultPerPage = 30

// pageParams returns the query string for one page.
func pageParams(page, perPage int) url.Values {
	return url.Values{
		"q":        []string{Query},
		"sort":     []string{Sort},
		"order":    []string{Order},
		"per_page": []string{strconv.Itoa(perPage)},
		"page":     []string{strconv.Itoa(page)},
	}
}
