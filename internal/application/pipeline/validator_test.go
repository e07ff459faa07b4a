package pipeline

import (
	"testing"

	"github.com/aescanero/crossplot/pkg/domain"
)

func TestValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		req     domain.TriggerRequest
		wantErr string
	}{
		{name: "valid", req: domain.TriggerRequest{NYTToken: "abc", StartDate: "2023-01-01"}},
		{name: "empty", req: domain.TriggerRequest{}, wantErr: "nyt_token is required"},
		{name: "whitespace token passed through", req: domain.TriggerRequest{NYTToken: "  ", StartDate: "2023-01-01"}},
		{name: "unpadded date", req: domain.TriggerRequest{NYTToken: "abc", StartDate: "2023-1-5"}},
		{name: "blank date", req: domain.TriggerRequest{NYTToken: "abc", StartDate: " "}, wantErr: "start_date must be a date in YYYY-MM-DD format"},
		{name: "date with time", req: domain.TriggerRequest{NYTToken: "abc", StartDate: "2023-01-01T00:00:00Z"}, wantErr: "start_date must be a date in YYYY-MM-DD format"},
		{name: "missing date", req: domain.TriggerRequest{NYTToken: "abc"}, wantErr: "start_date is required"},
		{name: "malformed date", req: domain.TriggerRequest{NYTToken: "abc", StartDate: "2023-13-01"}, wantErr: "start_date must be a date in YYYY-MM-DD format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
			if !domain.IsValidation(err) {
				t.Fatal("expected a ValidationError")
			}
		})
	}
}
