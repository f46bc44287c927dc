package persona

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cafca/glia/src/keypair"
	"github.com/cafca/glia/src/utils"
)

// Persona is an identity on the network: an opaque id, an optional
// username and two keypairs, one for wrapping content keys and one for
// signing payloads. A persona loaded from a remote node carries only
// the public halves.
type Persona struct {
	ID       string               `json:"id"`
	Username string               `json:"username,omitempty"`
	Keys     *keypair.KeyPair     `json:"keys"`
	SignKeys *keypair.SignKeyPair `json:"sign_keys"`
}

// New creates a persona with fresh keypairs and a generated id.
func New(username string) (p *Persona, err error) {
	p = new(Persona)
	p.ID = NewID()
	p.Username = username

	keys, err := keypair.New()
	if err != nil {
		return
	}
	p.Keys = &keys

	signKeys, err := keypair.NewSign()
	if err != nil {
		return
	}
	p.SignKeys = &signKeys
	return
}

// NewID returns a fresh 128-bit identifier rendered as 32 hex digits.
func NewID() string {
	return strings.Replace(uuid.New().String(), "-", "", -1)
}

// PublicPersona returns a copy stripped down to the public key halves,
// safe to publish to other nodes.
func (p *Persona) PublicPersona() *Persona {
	pub := new(Persona)
	pub.ID = p.ID
	pub.Username = p.Username
	if p.Keys != nil {
		keys := p.Keys.PublicKey()
		pub.Keys = &keys
	}
	if p.SignKeys != nil {
		signKeys := p.SignKeys.PublicKey()
		pub.SignKeys = &signKeys
	}
	return pub
}

// Sign produces a detached signature over data with the persona's
// private signing key.
func (p *Persona) Sign(data []byte) (signature []byte, err error) {
	if p.SignKeys == nil {
		err = errors.New("persona has no signing keys")
		return
	}
	return p.SignKeys.Sign(data)
}

// Verify checks a detached signature over data against the persona's
// public signing key.
func (p *Persona) Verify(data, signature []byte) bool {
	if p.SignKeys == nil {
		return false
	}
	return p.SignKeys.Verify(data, signature)
}

// Encrypt wraps data for this persona. Only the holder of the private
// encryption key can unwrap it.
func (p *Persona) Encrypt(data []byte) (encrypted []byte, err error) {
	if p.Keys == nil {
		err = errors.New("persona has no encryption keys")
		return
	}
	return p.Keys.Seal(data)
}

// Decrypt unwraps a blob produced by Encrypt.
func (p *Persona) Decrypt(encrypted []byte) (data []byte, err error) {
	if p.Keys == nil {
		err = errors.New("persona has no encryption keys")
		return
	}
	return p.Keys.Open(encrypted)
}

func (p *Persona) String() string {
	if p.Username != "" {
		return fmt.Sprintf("<%s [%s]>", p.Username, shortID(p.ID))
	}
	return fmt.Sprintf("<%s [%s]>", utils.StringToReadableHash(p.ID), shortID(p.ID))
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
