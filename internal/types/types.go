// ABOUTME: Common types shared across the VulnSearch system.
// ABOUTME: Defines the vulnerability record, its abbreviated form, and source column names.

package types

import (
	"maps"
	"unicode/utf8"
)

// Column headers used by the FSTEC BDU export (vullist.xlsx)
const (
	ColumnID          = "Идентификатор"
	ColumnName        = "Наименование уязвимости"
	ColumnDescription = "Описание уязвимости"
	ColumnVendor      = "Вендор ПО"
	ColumnSoftware    = "Название ПО"
	ColumnVersion     = "Версия ПО"
	ColumnSeverity    = "Уровень опасности уязвимости"
)

// SummaryNameLimit is the number of characters of the name kept in a RecordSummary
const SummaryNameLimit = 100

// Record represents a single vulnerability entry
type Record struct {
	ID          string            `json:"id"`          // e.g. BDU:2024-00001
	Name        string            `json:"name"`        // Short vulnerability title
	Description string            `json:"description"` // Free-text description
	Vendor      string            `json:"vendor"`      // Software vendor
	Software    string            `json:"software"`    // Affected product
	Version     string            `json:"version"`     // Affected product version
	Severity    string            `json:"severity"`    // Qualitative severity label
	Attributes  map[string]string `json:"attributes"`  // Remaining columns, carried verbatim
}

// Clone returns a copy of the record that shares no mutable state with r
func (r Record) Clone() Record {
	c := r
	c.Attributes = maps.Clone(r.Attributes)
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	return c
}

// RecordSummary is the abbreviated form of a record returned by search
type RecordSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Software string `json:"software"`
	Vendor   string `json:"vendor"`
}

// Summarize builds the abbreviated form of r, truncating long names
func Summarize(r Record) RecordSummary {
	return RecordSummary{
		ID:       r.ID,
		Name:     TruncateName(r.Name),
		Severity: r.Severity,
		Software: r.Software,
		Vendor:   r.Vendor,
	}
}

// TruncateName keeps the first SummaryNameLimit characters of name and marks the cut with "..."
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= SummaryNameLimit {
		return name
	}
	return string([]rune(name)[:SummaryNameLimit]) + "..."
}
