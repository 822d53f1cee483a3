package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://localhost:8000", true},
		{"https://analysis.example.com/api", true},
		{"ftp://example.com", false},
		{"localhost:8000", false},
		{"http://", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHTTPURL(tt.in))
		})
	}
}

func TestValidateStruct(t *testing.T) {
	type request struct {
		Upstream string `validate:"required,httpurl"`
		Name     string `validate:"max=3"`
	}

	assert.NoError(t, ValidateStruct(request{Upstream: "http://x"}))

	err := ValidateStruct(request{})
	assert.EqualError(t, err, "upstream is required")

	err = ValidateStruct(request{Upstream: "file:///etc", Name: "toolong"})
	assert.EqualError(t, err, "upstream must start with http:// or https://; name must be at most 3 characters")
}
