package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Target string `json:"target" validate:"required,notblank,http_url"`
	Code   string `json:"code,omitempty" validate:"omitempty,alphanum,min=6,max=8"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantField string
	}{
		{"valid", sample{Target: "https://example.com"}, ""},
		{"valid with code", sample{Target: "http://example.com/a?b=c", Code: "MYLINK1"}, ""},
		{"missing target", sample{}, "target"},
		{"blank target", sample{Target: "   "}, "target"},
		{"ftp target", sample{Target: "ftp://example.com"}, "target"},
		{"hostless target", sample{Target: "https://"}, "target"},
		{"short code", sample{Target: "https://example.com", Code: "abc"}, "code"},
		{"long code", sample{Target: "https://example.com", Code: "abcdefghi"}, "code"},
		{"symbol in code", sample{Target: "https://example.com", Code: "abc-123"}, "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
			if verrs[0].Field() != tt.wantField {
				t.Errorf("got field %q, want %q", verrs[0].Field(), tt.wantField)
			}
		})
	}
}
