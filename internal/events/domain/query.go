package domain

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/marketsync/internal/validation"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ListFilter selects stored events. Zero values mean "no filter"; Page is one-based.
type ListFilter struct {
	EventType string
	Processed *bool
	Page      int
	Limit     int
}

// Normalize applies paging defaults and caps the limit.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

// Offset returns the row offset of the normalized page.
func (f *ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Validate rejects malformed type filters.
func (f *ListFilter) Validate() error {
	err := validation.ValidateStruct(f,
		validation.Field(&f.EventType, appValidation.NoWhitespace, appValidation.DottedName),
	)
	return appValidation.WrapValidationError(err)
}

// Page is one page of stored events, newest first.
type Page struct {
	Items      []*SyncEvent `json:"items"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
}

// NewPage builds a page from the filter and the total row count.
func NewPage(items []*SyncEvent, filter ListFilter, total int) *Page {
	totalPages := 0
	if filter.Limit > 0 {
		totalPages = (total + filter.Limit - 1) / filter.Limit
	}
	if items == nil {
		items = []*SyncEvent{}
	}
	return &Page{
		Items:      items,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// PollResult summarizes one poll over every stream. Dropped counts events of
// unknown type and feed entries that could not be decoded.
type PollResult struct {
	Ingested     int               `json:"ingested"`
	Processed    int               `json:"processed"`
	Failed       int               `json:"failed"`
	Duplicates   int               `json:"duplicates"`
	Dropped      int               `json:"dropped"`
	StreamErrors map[string]string `json:"stream_errors,omitempty"`
}

// Add accumulates the counts of another result.
func (r *PollResult) Add(other PollResult) {
	r.Ingested += other.Ingested
	r.Processed += other.Processed
	r.Failed += other.Failed
	r.Duplicates += other.Duplicates
	r.Dropped += other.Dropped
	for stream, msg := range other.StreamErrors {
		if r.StreamErrors == nil {
			r.StreamErrors = make(map[string]string)
		}
		r.StreamErrors[stream] = msg
	}
}
