package service

import (
	"errors"

	"github.com/tnqbao/gau-media-gateway/repository"
	"github.com/tnqbao/gau-media-gateway/utils"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindAuth        ErrorKind = "auth"
	KindNotFound    ErrorKind = "not_found"
	KindStorage     ErrorKind = "storage"
	KindPersistence ErrorKind = "persistence"
	KindSigning     ErrorKind = "signing"
	KindUnknown     ErrorKind = "unknown"
)

var (
	ErrUnsupportedKind = utils.ErrUnsupportedKind
	ErrUnsupportedMime = utils.ErrUnsupportedMime
	ErrMediaNotFound   = repository.ErrMediaNotFound
	ErrDuplicateMedia  = repository.ErrDuplicateMedia

	ErrMimeNotAllowed  = errors.New("mime type not allowed")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidBucket   = errors.New("invalid bucket")
	ErrInvalidKind     = errors.New("invalid kind")
	ErrKindMismatch    = errors.New("mime does not match kind or bucket")
	ErrInvalidMetadata = errors.New("metadata does not apply to this kind")
	ErrPathNotOwned    = errors.New("path is outside the caller's namespace")
	ErrObjectMissing   = errors.New("object not found in storage")
	ErrInvalidToken    = errors.New("invalid upload token")
	ErrStorageWrite    = errors.New("storage write failed")
	ErrStorageDelete   = errors.New("storage delete failed")
	ErrStorageRead     = errors.New("storage read failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrSigning         = errors.New("signing failed")
)

// Error carries a kind for transport mapping, a sentinel for errors.Is and
// the underlying cause when there is one.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func newError(kind ErrorKind, sentinel error, message string, cause error) *Error {
	if message == "" {
		message = sentinel.Error()
	}
	return &Error{Kind: kind, Message: message, Err: sentinel, Cause: cause}
}

func validationError(sentinel error, message string) *Error {
	return newError(KindValidation, sentinel, message, nil)
}

func duplicateError() *Error {
	return validationError(ErrDuplicateMedia, "media already committed")
}

func notFoundError() *Error {
	return newError(KindNotFound, ErrMediaNotFound, "media not found", nil)
}

// KindOf reports the kind of err, or KindUnknown when it is not a service error.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindUnknown
}
