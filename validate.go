package promptdepot

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateID checks that a template id is safe for use as a path segment and cache key.
// Ids must be non-empty, must not start with '.' (reserved for store bookkeeping entries)
// and must not contain path separators, ':' or control characters.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id must not be empty", ErrInvalidName)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: %q must not start with '.'", ErrInvalidName, id)
	case strings.ContainsAny(id, `/\:`):
		return fmt.Errorf("%w: %q must not contain '/', '\\' or ':'", ErrInvalidName, id)
	case strings.ContainsFunc(id, unicode.IsControl):
		return fmt.Errorf("%w: %q must not contain control characters", ErrInvalidName, id)
	}
	return nil
}
