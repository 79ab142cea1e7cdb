package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daybook/internal/daycount"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
)

// maxEntryBytes bounds a single journal entry accepted over the API.
const maxEntryBytes = 64 << 10

// StartDateRequest is the request body for changing the start date.
type StartDateRequest struct {
	StartDate string `json:"start_date" example:"2025-08-04" validate:"required"`
}

// Validate validates the request.
func (r StartDateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StartDate, validation.Required),
	)
}

// CreateEntryRequest is the request body for appending a journal entry.
type CreateEntryRequest struct {
	Text string `json:"text" example:"Walked 5k #health" validate:"required"`
}

// Validate validates the request.
func (r CreateEntryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required, validation.Length(1, maxEntryBytes)),
	)
}

// StartDateResponse reports the active start date.
type StartDateResponse struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	Days      int       `json:"days" example:"440" validate:"required"`
}

// DaysResponse is the day count for a single date.
type DaysResponse struct {
	Date string `json:"date" example:"2025-08-04" validate:"required"`
	Days int    `json:"days" example:"440" validate:"required"`
}

// ElapsedResponse is the days:hours:minutes:seconds breakdown since the start date.
type ElapsedResponse struct {
	StartDate time.Time        `json:"start_date" validate:"required"`
	Elapsed   daycount.Elapsed `json:"elapsed" validate:"required"`
	Display   string           `json:"display" example:"440:9:24:0" validate:"required"`
}

// Entry is a journal entry (aliased from the domain layer).
type Entry = journal.Entry

// EntriesResponse wraps entry listings in file order.
type EntriesResponse struct {
	Entries []Entry `json:"entries" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// TagsResponse wraps tag counts.
type TagsResponse struct {
	Tags []index.TagCount `json:"tags" validate:"required"`
}

// CoachResponse carries a coaching suggestion.
type CoachResponse struct {
	Suggestion string `json:"suggestion" validate:"required"`
}
