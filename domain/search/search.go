package search

import (
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query represents the structured parameters of a message search.
// It decouples the raw user input from the actual index engine requirements.
type Query struct {
	RawInput string // The original input from the user
	Terms    string // The actual text to search in the index
	Lang     string // ISO 639-1 language filter, empty for any
	Sender   string // Exact sender filter, empty for any
	Limit    int    // Number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: /find badger pictures --lang en --limit 5 --sender Alice
// Unknown flags are dropped together with their value.
func NewSearchQuery(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    DefaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			val := parts[i+1]
			switch strings.TrimPrefix(part, "--") {
			case "lang":
				query.Lang = strings.ToLower(val)
			case "sender":
				query.Sender = val
			case "limit":
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					query.Limit = min(n, MaxLimit)
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, part)
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

// IsEmpty is true when the query carries neither terms nor filters.
func (q Query) IsEmpty() bool {
	return q.Terms == "" && q.Lang == "" && q.Sender == ""
}
