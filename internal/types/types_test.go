// ABOUTME: Unit tests for shared record types.
// ABOUTME: Tests name truncation, summaries, and record cloning.

package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "short name",
			input:    "Nginx vuln",
			expected: "Nginx vuln",
		},
		{
			name:     "exactly at limit",
			input:    strings.Repeat("a", SummaryNameLimit),
			expected: strings.Repeat("a", SummaryNameLimit),
		},
		{
			name:     "over limit",
			input:    strings.Repeat("a", SummaryNameLimit+1),
			expected: strings.Repeat("a", SummaryNameLimit) + "...",
		},
		{
			name:     "cyrillic counted by characters",
			input:    strings.Repeat("я", SummaryNameLimit+5),
			expected: strings.Repeat("я", SummaryNameLimit) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateName(tt.input))
		})
	}
}

func TestSummarize(t *testing.T) {
	record := Record{
		ID:          "BDU:2024-00001",
		Name:        "Nginx vuln 1",
		Description: "Buffer overflow",
		Vendor:      "nginx Inc",
		Software:    "nginx",
		Version:     "1.5.6",
		Severity:    "Критический",
	}

	summary := Summarize(record)

	assert.Equal(t, RecordSummary{
		ID:       "BDU:2024-00001",
		Name:     "Nginx vuln 1",
		Severity: "Критический",
		Software: "nginx",
		Vendor:   "nginx Inc",
	}, summary)
}

func TestRecordClone(t *testing.T) {
	original := Record{
		ID:         "BDU:2024-00001",
		Attributes: map[string]string{"CVSS 3.0": "9.8"},
	}

	clone := original.Clone()
	clone.Attributes["CVSS 3.0"] = "0.0"
	clone.Name = "changed"

	assert.Equal(t, "9.8", original.Attributes["CVSS 3.0"])
	assert.Empty(t, original.Name)

	empty := Record{ID: "x"}.Clone()
	assert.NotNil(t, empty.Attributes)
}
