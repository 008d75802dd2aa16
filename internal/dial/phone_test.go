package dial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		valid bool
	}{
		{"ten digits", "2125551234", "+12125551234", true},
		{"eleven with country code", "12125551234", "+12125551234", true},
		{"formatted", "(212) 555-1234", "+12125551234", true},
		{"e164 passthrough", "+1-212-555-1234", "+12125551234", true},
		{"dots and spaces", "212.555.1234", "+12125551234", true},
		{"area code starts with 0", "0125551234", "", false},
		{"area code starts with 1", "1125551234", "", false},
		{"exchange starts with 0", "2120551234", "", false},
		{"too short", "555123", "", false},
		{"too long", "221255512345", "", false},
		{"eleven not starting with 1", "22125551234", "", false},
		{"empty", "", "", false},
		{"letters only", "call-me", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValidatePhoneNumber(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
