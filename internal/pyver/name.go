package pyver

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	validNameRe     = regexp.MustCompile(`(?i)^([a-z0-9]|[a-z0-9][a-z0-9._-]*[a-z0-9])$`)
	nameSeparatorRe = regexp.MustCompile(`[-_.]+`)
)

// InvalidNameError is returned when a project name does not match the
// PEP 508 name pattern.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid project name %q", e.Name)
}

// CanonicalizeName lowercases a project name and collapses runs of "-", "_"
// and "." into a single "-". When validate is set, names that are not valid
// PEP 508 identifiers are rejected.
func CanonicalizeName(name string, validate bool) (string, error) {
	if validate && !validNameRe.MatchString(name) {
		return "", &InvalidNameError{Name: name}
	}
	return strings.ToLower(nameSeparatorRe.ReplaceAllString(name, "-")), nil
}
