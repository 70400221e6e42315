// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/nemory/userkeys/internal/errors"
)

var (
	// purposeLabelRegex matches dotted lowercase labels such as "entry.content"
	purposeLabelRegex = regexp.MustCompile(`^[a-z0-9]+([._:-][a-z0-9]+)*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PurposeLabel validates the scope label bound into an envelope context
var PurposeLabel = validation.NewStringRuleWithError(
	func(s string) bool {
		return len(s) <= 128 && purposeLabelRegex.MatchString(s)
	},
	validation.NewError(
		"validation_purpose_label",
		"must be a lowercase label such as entry.content (letters, digits and . _ : - separators)",
	),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
