package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/gh-harvest/pkg/pagination"
	"github.com/fatih/color"
)

// ConsoleSink prints one line per repository: full name and star count.
type ConsoleSink struct {
	writer io.Writer
	name   *color.Color
	stars  *color.Color
}

// NewConsoleSink creates a sink writing to w (default os.Stdout). Colors
// follow fatih/color's terminal detection.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{
		writer: w,
		name:   color.New(color.Bold),
		stars:  color.New(color.FgYellow),
	}
}

type repoSummary struct {
	FullName        string `json:"full_name"`
	StargazersCount int    `json:"stargazers_count"`
}

// Write prints every item in order. Items that are not JSON objects are
// reported as an error.
func (s *ConsoleSink) Write(results pagination.ResultSet) error {
	for i, item := range results {
		var repo repoSummary
		if err := json.Unmarshal(item, &repo); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if _, err := fmt.Fprintf(s.writer, "%s %s\n",
			s.name.Sprint(repo.FullName),
			s.stars.Sprintf("★ %d", repo.StargazersCount),
		); err != nil {
			return err
		}
	}
	return nil
}
