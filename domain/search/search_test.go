package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "Plain terms",
			input:    "hello world",
			expected: Query{RawInput: "hello world", Terms: "hello world", Limit: DefaultLimit},
		},
		{
			name:  "Command prefix and flags",
			input: "/find badger --lang FR --limit 5 --sender Alice",
			expected: Query{
				RawInput: "/find badger --lang FR --limit 5 --sender Alice",
				Terms:    "badger",
				Lang:     "fr",
				Sender:   "Alice",
				Limit:    5,
			},
		},
		{
			name:     "Invalid and oversized limits",
			input:    "a --limit zero --limit 1000",
			expected: Query{RawInput: "a --limit zero --limit 1000", Terms: "a", Limit: MaxLimit},
		},
		{
			name:     "Unknown flag is dropped with its value",
			input:    "a --room 12 b",
			expected: Query{RawInput: "a --room 12 b", Terms: "a b", Limit: DefaultLimit},
		},
		{
			name:     "Dangling flag is kept as a term",
			input:    "a --lang",
			expected: Query{RawInput: "a --lang", Terms: "a --lang", Limit: DefaultLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, *NewSearchQuery(tt.input))
		})
	}
}

func TestQuery_IsEmpty(t *testing.T) {
	req := require.New(t)
	req.True(NewSearchQuery("").IsEmpty())
	req.True(NewSearchQuery("/find").IsEmpty())
	req.False(NewSearchQuery("--lang en").IsEmpty())
}
