// Package reply models the structured object every assistant turn must
// produce and decodes it incrementally from a token stream.
package reply

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FrustrationLevel grades how frustrated the caller currently sounds.
type FrustrationLevel string

const (
	FrustrationLow    FrustrationLevel = "low"
	FrustrationMedium FrustrationLevel = "medium"
	FrustrationHigh   FrustrationLevel = "high"
)

// Reply is the structured assistant turn.
type Reply struct {
	UserFrustrationLevel FrustrationLevel `json:"user_frustration_level"`
	NumberOfAttempts     int              `json:"number_of_attempts"`
	Response             string           `json:"response"`
}

// Fallback is the reply substituted when the model output cannot be parsed.
func Fallback() Reply {
	return Reply{
		UserFrustrationLevel: FrustrationMedium,
		NumberOfAttempts:     -1,
		Response:             "Can you say that again, please?",
	}
}

// Parse decodes a complete reply object. All three fields must be present
// and the frustration level must be a known grade.
func Parse(raw string) (Reply, error) {
	var aux struct {
		UserFrustrationLevel *FrustrationLevel `json:"user_frustration_level"`
		NumberOfAttempts     *int              `json:"number_of_attempts"`
		Response             *string           `json:"response"`
	}
	if err := json.Unmarshal([]byte(raw), &aux); err != nil {
		return Reply{}, fmt.Errorf("parse reply: %w", err)
	}
	if aux.UserFrustrationLevel == nil || aux.NumberOfAttempts == nil || aux.Response == nil {
		return Reply{}, errors.New("reply missing required fields")
	}
	switch *aux.UserFrustrationLevel {
	case FrustrationLow, FrustrationMedium, FrustrationHigh:
	default:
		return Reply{}, fmt.Errorf("unknown frustration level %q", *aux.UserFrustrationLevel)
	}
	return Reply{
		UserFrustrationLevel: *aux.UserFrustrationLevel,
		NumberOfAttempts:     *aux.NumberOfAttempts,
		Response:             *aux.Response,
	}, nil
}
