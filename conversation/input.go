package conversation

import (
	"strconv"
	"strings"

	"heist/service"
)

// ParseAmount reads a positive whole number, allowing thousands separators
func ParseAmount(input string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || n <= 0 {
		return 0, service.NewValidationError("%q is not a positive whole number", input)
	}
	return n, nil
}

func parseInRange(input string, lo, hi int64) (int64, error) {
	n, err := ParseAmount(input)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, service.NewValidationError("enter a number from %d to %d", lo, hi)
	}
	return n, nil
}

// ParseUserID accepts a raw ID or a <@id> / <@!id> mention
func ParseUserID(input string) (int64, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSuffix(s, ">")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, service.NewValidationError("%q is not a user mention or ID", input)
	}
	return id, nil
}

// parseYesNo returns the answer to a confirmation question
func parseYesNo(input string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "confirm", "نعم":
		return true, nil
	case "no", "n", "لا":
		return false, nil
	}
	return false, service.NewValidationError("please answer yes or no")
}
