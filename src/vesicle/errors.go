package vesicle

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors returned by vesicle operations. Callers distinguish
// them with errors.Cause.
var (
	// ErrEmptyData is returned when encrypting or serializing a vesicle
	// that carries no data.
	ErrEmptyData = errors.New("vesicle has no data")

	// ErrNoRecipients is returned when encrypting for an empty
	// recipient list.
	ErrNoRecipients = errors.New("no recipients given")

	// ErrAlreadyEncrypted is returned when encrypting a vesicle that
	// already holds ciphertext.
	ErrAlreadyEncrypted = errors.New("vesicle is already encrypted")

	// ErrNotEncrypted is returned when decrypting a plaintext vesicle
	// or editing the keycrypt of one.
	ErrNotEncrypted = errors.New("vesicle is not encrypted")

	// ErrNotPlaintext is returned when decoding the payload of an
	// encrypted vesicle without decrypting it.
	ErrNotPlaintext = errors.New("vesicle payload is not plaintext")

	// ErrContentKeyUnavailable is returned when adding a recipient
	// while the content key has not been derived or unwrapped.
	ErrContentKeyUnavailable = errors.New("content key unavailable")

	// ErrNotAuthorized is returned when the reader has no entry in the
	// keycrypt.
	ErrNotAuthorized = errors.New("reader is not a recipient")

	// ErrDuplicateRecipient is returned when adding a recipient that
	// already has a keycrypt entry.
	ErrDuplicateRecipient = errors.New("recipient already in keycrypt")

	// ErrRecipientNotFound is returned when removing a recipient that
	// has no keycrypt entry.
	ErrRecipientNotFound = errors.New("recipient not in keycrypt")

	// ErrAuthorMismatch is returned when signing with a persona other
	// than the one that encrypted.
	ErrAuthorMismatch = errors.New("signing author does not match existing author")

	// ErrAuthorNotFound is returned when a signature cannot be checked
	// because the author is not in the directory. Distinct from
	// ErrInvalidSignature: trust could not be evaluated at all.
	ErrAuthorNotFound = errors.New("author not found")

	// ErrInvalidSignature is returned on read when the envelope carries
	// a signature that does not match its payload.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnsupportedVersion is returned on read when the envelope
	// declares a protocol version other than Version.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// MalformedEnvelopeError reports a missing or undecodable field in a
// wire envelope.
type MalformedEnvelopeError struct {
	Field string
}

func (e *MalformedEnvelopeError) Error() string {
	return fmt.Sprintf("malformed envelope: bad field %q", e.Field)
}
