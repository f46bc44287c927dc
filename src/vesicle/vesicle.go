package vesicle

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/cafca/glia/src/logging"
	"github.com/cafca/glia/src/persona"
	"github.com/cafca/glia/src/symmetric"
)

// Version is the wire protocol version. Envelopes declaring any other
// version are rejected on read.
const Version = "0.1"

// DefaultEncoding tags a payload as plaintext-encoded.
const DefaultEncoding = Version + "-plain"

// EncryptedEncoding tags a payload as AES-256 ciphertext.
const EncryptedEncoding = Version + "-AES256"

const cipherTagPlain = "plain"

var log = logging.Log

// State tracks where a vesicle is in its lifecycle. Every operation
// checks it explicitly instead of inferring it from field presence.
type State int

const (
	// StateNew holds plaintext data and no payload yet.
	StateNew State = iota
	// StatePlain holds an encoded plaintext payload.
	StatePlain
	// StateEncrypted holds ciphertext; data is cleared.
	StateEncrypted
	// StateDecrypted holds ciphertext and the recovered data.
	StateDecrypted
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePlain:
		return "plain"
	case StateEncrypted:
		return "encrypted"
	case StateDecrypted:
		return "decrypted"
	}
	return "unknown"
}

// Directory resolves persona ids to known identities during signature
// verification. Implementations return (nil, nil) for an unknown id;
// a non-nil error means the lookup itself failed.
type Directory interface {
	PersonaByID(id string) (*persona.Persona, error)
}

// Vesicle is the envelope exchanged between soumas. It carries either
// plaintext data or an encrypted payload with a per-recipient keycrypt,
// and optionally a detached signature over the payload bytes.
type Vesicle struct {
	ID          string
	MessageType string
	Data        interface{}
	Payload     []byte
	Encoding    string
	Signature   []byte
	AuthorID    string
	SoumaID     string
	Keycrypt    map[string]string
	Created     time.Time

	state      State
	contentKey []byte
}

// New creates a vesicle around plaintext data.
func New(messageType string, data interface{}) (v *Vesicle) {
	v = new(Vesicle)
	v.ID = persona.NewID()
	v.MessageType = messageType
	v.Data = data
	v.Encoding = DefaultEncoding
	v.Created = time.Now()
	v.state = StateNew
	return
}

func (v *Vesicle) String() string {
	author := "anon"
	if v.AuthorID != "" {
		author = shortID(v.AuthorID)
	}
	return fmt.Sprintf("<vesicle %s by %s [%s]>", v.MessageType, author, shortID(v.ID))
}

// State returns the explicit lifecycle state.
func (v *Vesicle) State() State {
	return v.state
}

// Encrypted reports whether the payload holds ciphertext.
func (v *Vesicle) Encrypted() bool {
	return v.state == StateEncrypted || v.state == StateDecrypted
}

// Decrypted reports whether plaintext data is available.
func (v *Vesicle) Decrypted() bool {
	return v.Data != nil
}

// Signed reports whether a signature is attached. It does not check
// validity, see Verify.
func (v *Vesicle) Signed() bool {
	return v.Signature != nil
}

// Encrypt turns the data field into an encrypted payload and wraps the
// content key for each recipient.
//
// The content key is derived from a hash of the plaintext, so two
// vesicles with identical data encrypt to the same key. This keeps the
// scheme deterministic at the cost of leaking plaintext equality
// between messages.
func (v *Vesicle) Encrypt(author *persona.Persona, recipients []*persona.Persona) (err error) {
	if v.state != StateNew {
		return errors.Wrapf(ErrAlreadyEncrypted, "cannot encrypt %s", v)
	}
	if v.Data == nil || v.Data == "" {
		return errors.Wrapf(ErrEmptyData, "cannot encrypt %s", v)
	}
	if len(recipients) == 0 {
		return errors.Wrapf(ErrNoRecipients, "cannot encrypt %s", v)
	}

	data, err := json.Marshal(v.Data)
	if err != nil {
		return errors.Wrap(err, "encoding data")
	}

	hashcode := sha256.Sum256(data)
	key, err := symmetric.DeriveKey(hashcode[:])
	if err != nil {
		return errors.Wrap(err, "deriving content key")
	}

	payload, err := symmetric.Encrypt(data, key)
	if err != nil {
		return errors.Wrap(err, "encrypting payload")
	}

	// Wrap the content key for every recipient before touching the
	// vesicle, so a failed wrap leaves it unchanged.
	keycrypt := make(map[string]string, len(recipients))
	for _, r := range recipients {
		if _, ok := keycrypt[r.ID]; ok {
			return errors.Wrapf(ErrDuplicateRecipient, "%s in %s", r, v)
		}
		wrapped, err := r.Encrypt(hashcode[:])
		if err != nil {
			return errors.Wrapf(err, "wrapping content key for %s", r)
		}
		keycrypt[r.ID] = base64.URLEncoding.EncodeToString(wrapped)
	}

	v.Payload = payload
	v.Data = nil
	v.AuthorID = author.ID
	v.Encoding = EncryptedEncoding
	v.Keycrypt = keycrypt
	v.contentKey = hashcode[:]
	v.state = StateEncrypted

	log.Debugf("%s encrypted for %d recipients", v, len(keycrypt))
	return nil
}

// Decrypt recovers the data field from the payload. The ciphertext is
// kept, so Encrypted still reports true afterwards and the signature
// can be re-verified.
func (v *Vesicle) Decrypt(reader *persona.Persona) (err error) {
	if !v.Encrypted() {
		return errors.Wrapf(ErrNotEncrypted, "cannot decrypt %s", v)
	}

	wrapped, ok := v.Keycrypt[reader.ID]
	if !ok {
		return errors.Wrapf(ErrNotAuthorized, "no keycrypt entry for %s in %s", reader, v)
	}

	hashcode := v.contentKey
	if hashcode == nil {
		wrappedBytes, err := base64.URLEncoding.DecodeString(wrapped)
		if err != nil {
			return errors.Wrap(err, "keycrypt entry is corrupted")
		}
		hashcode, err = reader.Decrypt(wrappedBytes)
		if err != nil {
			return errors.Wrapf(err, "unwrapping content key for %s", reader)
		}
	}

	key, err := symmetric.DeriveKey(hashcode)
	if err != nil {
		return errors.Wrap(err, "deriving content key")
	}

	data, err := symmetric.Decrypt(v.Payload, key)
	if err != nil {
		return errors.Wrapf(err, "decrypting %s", v)
	}

	var decoded interface{}
	if err = json.Unmarshal(data, &decoded); err != nil {
		return errors.Wrapf(err, "decoding data of %s", v)
	}

	v.contentKey = hashcode
	v.Data = decoded
	v.state = StateDecrypted
	return nil
}

// Sign attaches a detached signature over the payload bytes. A
// plaintext vesicle is first encoded into its payload form.
func (v *Vesicle) Sign(author *persona.Persona) (err error) {
	if v.AuthorID != "" && v.AuthorID != author.ID {
		return errors.Wrapf(ErrAuthorMismatch, "%s signing %s", author, v)
	}

	if v.state == StateNew {
		payload, err := json.Marshal(v.Data)
		if err != nil {
			return errors.Wrap(err, "encoding data")
		}
		v.Payload = payload
		v.Data = nil
		v.Encoding = DefaultEncoding
		v.state = StatePlain
	}

	signature, err := author.Sign(v.Payload)
	if err != nil {
		return errors.Wrapf(err, "signing %s", v)
	}

	v.Signature = signature
	v.AuthorID = author.ID
	log.Debugf("%s signed", v)
	return nil
}

// Verify checks the signature against the payload bytes. It returns
// false without error when no signature is attached or the signature
// does not match, and an error only when verification could not be
// attempted because the author is unknown.
func (v *Vesicle) Verify(dir Directory) (valid bool, err error) {
	if v.Signature == nil {
		return false, nil
	}
	if v.AuthorID == "" {
		return false, errors.Wrapf(ErrAuthorNotFound, "%s carries no author id", v)
	}

	author, err := dir.PersonaByID(v.AuthorID)
	if err != nil {
		return false, errors.Wrapf(err, "resolving author of %s", v)
	}
	if author == nil {
		return false, errors.Wrapf(ErrAuthorNotFound, "author [%s] of %s", shortID(v.AuthorID), v)
	}

	return author.Verify(v.Payload, v.Signature), nil
}

// Decode recovers the data field from a plaintext payload. Encrypted
// vesicles must be decrypted instead.
func (v *Vesicle) Decode() (err error) {
	if v.Encrypted() {
		return errors.Wrapf(ErrNotPlaintext, "cannot decode %s", v)
	}
	if v.Payload == nil {
		return errors.Wrapf(ErrEmptyData, "cannot decode %s", v)
	}

	var decoded interface{}
	if err = json.Unmarshal(v.Payload, &decoded); err != nil {
		return errors.Wrapf(err, "decoding payload of %s", v)
	}
	v.Data = decoded
	return nil
}

// AddRecipient wraps the content key for another persona. The vesicle
// must be encrypted and the content key must be available, either from
// encrypting or from a previous decrypt.
func (v *Vesicle) AddRecipient(recipient *persona.Persona) (err error) {
	if !v.Encrypted() {
		return errors.Wrapf(ErrNotEncrypted, "cannot add recipient to %s", v)
	}
	if v.contentKey == nil {
		return errors.Wrapf(ErrContentKeyUnavailable, "cannot add recipient to %s", v)
	}
	if _, ok := v.Keycrypt[recipient.ID]; ok {
		return errors.Wrapf(ErrDuplicateRecipient, "%s in %s", recipient, v)
	}

	wrapped, err := recipient.Encrypt(v.contentKey)
	if err != nil {
		return errors.Wrapf(err, "wrapping content key for %s", recipient)
	}
	v.Keycrypt[recipient.ID] = base64.URLEncoding.EncodeToString(wrapped)
	return nil
}

// RemoveRecipient deletes a persona's keycrypt entry.
//
// This does not re-key the content: a recipient who stored the content
// key out-of-band can still decrypt this payload. Known limitation of
// shared symmetric content keys.
func (v *Vesicle) RemoveRecipient(recipient *persona.Persona) (err error) {
	if _, ok := v.Keycrypt[recipient.ID]; !ok {
		return errors.Wrapf(ErrRecipientNotFound, "%s in %s", recipient, v)
	}
	delete(v.Keycrypt, recipient.ID)
	return nil
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
