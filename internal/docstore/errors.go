package docstore

import "github.com/kadirpekel/jsonstorage/internal/apperrors"

// errBadRequest lets this package build "%w: detail" errors without
// importing apperrors at every call site.
var errBadRequest = apperrors.BadRequest

// apperrorsTransient wraps a low-level database/sql error under the
// shared TransientIO sentinel so callers across the store can recognize
// retryable failures with errors.Is instead of inspecting driver error
// strings.
func apperrorsTransient(op string, err error) error {
	return apperrors.Transientf("docstore: %s: %v", op, err)
}
