package exam

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyAttempted   = errors.New("already attempted")
	ErrDuplicateAttempt   = errors.New("duplicate attempt")
	ErrContentUnavailable = errors.New("content unavailable")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrInvalidContent     = errors.New("invalid content")
	ErrForbidden          = errors.New("forbidden")
)

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContentUnavailable)
}

// Kind returns the taxonomy name of err, or "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrAlreadyAttempted):
		return "AlreadyAttempted"
	case errors.Is(err, ErrDuplicateAttempt):
		return "DuplicateAttempt"
	case errors.Is(err, ErrContentUnavailable):
		return "ContentUnavailable"
	case errors.Is(err, ErrDecryptionFailed):
		return "DecryptionFailed"
	case errors.Is(err, ErrInvalidContent):
		return "InvalidContent"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	default:
		return "internal"
	}
}
