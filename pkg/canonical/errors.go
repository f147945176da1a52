package canonical

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError rejects a document before it reaches the store. Retrying the
// same document cannot succeed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid document: %q %s", e.Field, e.Reason)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
