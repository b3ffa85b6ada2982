package calls

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrMissingPhone = errors.New("phone number is required")
	ErrInvalidPhone = errors.New("invalid phone number")
)

var (
	e164Pattern     = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	nationalPattern = regexp.MustCompile(`^[2-9][0-9]{9}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// NormalizePhone returns the number in E.164 form. Ten-digit US numbers
// get a +1 prefix.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrMissingPhone
	}

	phone := phoneSeparators.Replace(trimmed)
	switch {
	case e164Pattern.MatchString(phone):
		return phone, nil
	case nationalPattern.MatchString(phone):
		return "+1" + phone, nil
	default:
		return "", ErrInvalidPhone
	}
}
