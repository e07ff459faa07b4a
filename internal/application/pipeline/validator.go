package pipeline

import (
	"time"

	"github.com/aescanero/crossplot/pkg/domain"
)

// requestDateLayout accepts both 2023-01-05 and 2023-1-5
const requestDateLayout = "2006-1-2"

// Validator validates trigger requests
type Validator struct{}

// NewValidator creates a new trigger request validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that both fields are present and the date is well formed
func (v *Validator) Validate(req domain.TriggerRequest) error {
	if req.NYTToken == "" {
		return &domain.ValidationError{Field: "nyt_token"}
	}

	if req.StartDate == "" {
		return &domain.ValidationError{Field: "start_date"}
	}

	if _, err := time.Parse(requestDateLayout, req.StartDate); err != nil {
		return &domain.ValidationError{
			Field:  "start_date",
			Reason: "must be a date in YYYY-MM-DD format",
		}
	}

	return nil
}
