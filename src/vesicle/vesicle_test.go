package vesicle

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/cafca/glia/src/persona"
)

// testDirectory resolves personas from a local map, returning nil for
// unknown ids per the Directory contract.
type testDirectory map[string]*persona.Persona

func (d testDirectory) PersonaByID(id string) (*persona.Persona, error) {
	return d[id], nil
}

func newPersona(t *testing.T, username string) *persona.Persona {
	p, err := persona.New(username)
	assert.Nil(t, err)
	return p
}

func TestPlaintextRoundTrip(t *testing.T) {
	alice := newPersona(t, "alice")
	dir := testDirectory{alice.ID: alice.PublicPersona()}

	data := map[string]interface{}{"text": "hello"}
	v := New("test", data)
	assert.Equal(t, StateNew, v.State())

	err := v.Sign(alice)
	assert.Nil(t, err)
	assert.True(t, v.Signed())
	assert.False(t, v.Encrypted())
	assert.Equal(t, "0.1-plain", v.Encoding)

	b, err := v.JSON()
	assert.Nil(t, err)

	v2, err := Read(b, dir)
	assert.Nil(t, err)
	assert.Equal(t, v.ID, v2.ID)
	assert.Equal(t, "test", v2.MessageType)

	valid, err := v2.Verify(dir)
	assert.Nil(t, err)
	assert.True(t, valid)

	err = v2.Decode()
	assert.Nil(t, err)
	assert.Equal(t, data, v2.Data)
}

func TestEncryptedRoundTrip(t *testing.T) {
	alice := newPersona(t, "alice")
	bob := newPersona(t, "bob")
	carol := newPersona(t, "carol")
	eve := newPersona(t, "eve")
	dir := testDirectory{alice.ID: alice.PublicPersona()}

	data := map[string]interface{}{"text": "a private thought"}
	v := New("thought", data)

	err := v.Encrypt(alice, []*persona.Persona{bob.PublicPersona(), carol.PublicPersona()})
	assert.Nil(t, err)
	assert.True(t, v.Encrypted())
	assert.Nil(t, v.Data)

	err = v.Sign(alice)
	assert.Nil(t, err)

	b, err := v.JSON()
	assert.Nil(t, err)

	for _, reader := range []*persona.Persona{bob, carol} {
		v2, err := Read(b, dir)
		assert.Nil(t, err)
		err = v2.Decrypt(reader)
		assert.Nil(t, err)
		assert.Equal(t, data, v2.Data)
		// ciphertext is kept for re-verification
		assert.True(t, v2.Encrypted())
		valid, err := v2.Verify(dir)
		assert.Nil(t, err)
		assert.True(t, valid)
	}

	// an identity without a keycrypt entry is refused
	v3, err := Read(b, dir)
	assert.Nil(t, err)
	err = v3.Decrypt(eve)
	assert.Equal(t, ErrNotAuthorized, errors.Cause(err))
}

func TestTamperDetection(t *testing.T) {
	alice := newPersona(t, "alice")
	dir := testDirectory{alice.ID: alice.PublicPersona()}

	v := New("test", map[string]interface{}{"text": "hello"})
	err := v.Sign(alice)
	assert.Nil(t, err)
	b, err := v.JSON()
	assert.Nil(t, err)

	var w map[string]interface{}
	err = json.Unmarshal(b, &w)
	assert.Nil(t, err)
	payload, err := base64.URLEncoding.DecodeString(w["payload"].(string))
	assert.Nil(t, err)
	payload[0] ^= 0x01
	w["payload"] = base64.URLEncoding.EncodeToString(payload)
	tampered, err := json.Marshal(w)
	assert.Nil(t, err)

	_, err = Read(tampered, dir)
	assert.Equal(t, ErrInvalidSignature, errors.Cause(err))
}

func TestVersionRejection(t *testing.T) {
	alice := newPersona(t, "alice")
	dir := testDirectory{alice.ID: alice.PublicPersona()}

	v := New("test", map[string]interface{}{"text": "hello"})
	err := v.Sign(alice)
	assert.Nil(t, err)
	b, err := v.JSON()
	assert.Nil(t, err)

	var w map[string]interface{}
	err = json.Unmarshal(b, &w)
	assert.Nil(t, err)
	w["encoding"] = "0.2-plain"
	futuristic, err := json.Marshal(w)
	assert.Nil(t, err)

	_, err = Read(futuristic, dir)
	assert.Equal(t, ErrUnsupportedVersion, errors.Cause(err))
}

func TestUnknownAuthor(t *testing.T) {
	alice := newPersona(t, "alice")

	v := New("test", map[string]interface{}{"text": "hello"})
	err := v.Sign(alice)
	assert.Nil(t, err)
	b, err := v.JSON()
	assert.Nil(t, err)

	// empty directory: trust cannot be evaluated, distinct from an
	// invalid signature
	_, err = Read(b, testDirectory{})
	assert.Equal(t, ErrAuthorNotFound, errors.Cause(err))
}

func TestRecipientRevocation(t *testing.T) {
	alice := newPersona(t, "alice")
	bob := newPersona(t, "bob")
	carol := newPersona(t, "carol")
	dir := testDirectory{alice.ID: alice.PublicPersona()}

	v := New("thought", map[string]interface{}{"text": "for bob only soon"})
	err := v.Encrypt(alice, []*persona.Persona{bob.PublicPersona(), carol.PublicPersona()})
	assert.Nil(t, err)

	err = v.RemoveRecipient(carol)
	assert.Nil(t, err)
	err = v.Sign(alice)
	assert.Nil(t, err)

	b, err := v.JSON()
	assert.Nil(t, err)
	v2, err := Read(b, dir)
	assert.Nil(t, err)

	_, ok := v2.Keycrypt[carol.ID]
	assert.False(t, ok)
	err = v2.Decrypt(carol)
	assert.Equal(t, ErrNotAuthorized, errors.Cause(err))
	err = v2.Decrypt(bob)
	assert.Nil(t, err)

	// removing again is an error
	err = v.RemoveRecipient(carol)
	assert.Equal(t, ErrRecipientNotFound, errors.Cause(err))
}

func TestAddRecipient(t *testing.T) {
	alice := newPersona(t, "alice")
	bob := newPersona(t, "bob")
	dave := newPersona(t, "dave")
	dir := testDirectory{alice.ID: alice.PublicPersona()}

	v := New("thought", map[string]interface{}{"text": "growing audience"})
	err := v.Encrypt(alice, []*persona.Persona{bob.PublicPersona()})
	assert.Nil(t, err)

	// content key is cached right after encrypting
	err = v.AddRecipient(dave.PublicPersona())
	assert.Nil(t, err)
	err = v.AddRecipient(dave.PublicPersona())
	assert.Equal(t, ErrDuplicateRecipient, errors.Cause(err))

	err = v.Sign(alice)
	assert.Nil(t, err)
	b, err := v.JSON()
	assert.Nil(t, err)

	v2, err := Read(b, dir)
	assert.Nil(t, err)
	err = v2.Decrypt(dave)
	assert.Nil(t, err)

	// a freshly read vesicle has no content key until decrypted
	v3, err := Read(b, dir)
	assert.Nil(t, err)
	err = v3.AddRecipient(newPersona(t, "frank").PublicPersona())
	assert.Equal(t, ErrContentKeyUnavailable, errors.Cause(err))

	// after decrypting, the unwrapped key allows adding again
	err = v3.Decrypt(bob)
	assert.Nil(t, err)
	err = v3.AddRecipient(newPersona(t, "frank").PublicPersona())
	assert.Nil(t, err)
}

func TestStatePreconditions(t *testing.T) {
	alice := newPersona(t, "alice")
	bob := newPersona(t, "bob")
	eve := newPersona(t, "eve")

	// empty data
	v := New("test", nil)
	err := v.Encrypt(alice, []*persona.Persona{bob.PublicPersona()})
	assert.Equal(t, ErrEmptyData, errors.Cause(err))

	// no recipients
	v = New("test", map[string]interface{}{"text": "hi"})
	err = v.Encrypt(alice, nil)
	assert.Equal(t, ErrNoRecipients, errors.Cause(err))

	// double encrypt
	err = v.Encrypt(alice, []*persona.Persona{bob.PublicPersona()})
	assert.Nil(t, err)
	err = v.Encrypt(alice, []*persona.Persona{bob.PublicPersona()})
	assert.Equal(t, ErrAlreadyEncrypted, errors.Cause(err))

	// author mismatch on sign
	err = v.Sign(eve)
	assert.Equal(t, ErrAuthorMismatch, errors.Cause(err))

	// decrypting a plaintext vesicle
	p := New("test", map[string]interface{}{"text": "hi"})
	err = p.Sign(alice)
	assert.Nil(t, err)
	err = p.Decrypt(bob)
	assert.Equal(t, ErrNotEncrypted, errors.Cause(err))

	// adding recipients to a plaintext vesicle
	err = p.AddRecipient(bob.PublicPersona())
	assert.Equal(t, ErrNotEncrypted, errors.Cause(err))

	// decoding an encrypted vesicle
	err = v.Decode()
	assert.Equal(t, ErrNotPlaintext, errors.Cause(err))
}

func TestUnsignedVerify(t *testing.T) {
	v := New("test", map[string]interface{}{"text": "hi"})
	valid, err := v.Verify(testDirectory{})
	assert.Nil(t, err)
	assert.False(t, valid)
	assert.False(t, v.Signed())
}

func TestSerializeNeverSealed(t *testing.T) {
	// a never-encrypted, never-signed vesicle serializes transiently
	// without being mutated
	data := map[string]interface{}{"text": "draft"}
	v := New("test", data)

	b, err := v.JSON()
	assert.Nil(t, err)
	assert.Nil(t, v.Payload)
	assert.Equal(t, data, v.Data)
	assert.Equal(t, StateNew, v.State())

	var w map[string]interface{}
	err = json.Unmarshal(b, &w)
	assert.Nil(t, err)
	assert.Equal(t, "0.1-plain", w["encoding"])
	assert.NotEmpty(t, w["payload"])
	assert.NotEmpty(t, w["created"])

	// serializing twice yields the same payload
	b2, err := v.JSON()
	assert.Nil(t, err)
	var w2 map[string]interface{}
	err = json.Unmarshal(b2, &w2)
	assert.Nil(t, err)
	assert.Equal(t, w["payload"], w2["payload"])
}

func TestMalformedEnvelope(t *testing.T) {
	alice := newPersona(t, "alice")
	dir := testDirectory{alice.ID: alice.PublicPersona()}

	v := New("test", map[string]interface{}{"text": "hello"})
	err := v.Sign(alice)
	assert.Nil(t, err)
	b, err := v.JSON()
	assert.Nil(t, err)

	for _, field := range []string{"id", "message_type", "payload", "encoding", "created"} {
		var w map[string]interface{}
		err = json.Unmarshal(b, &w)
		assert.Nil(t, err)
		delete(w, field)
		broken, err := json.Marshal(w)
		assert.Nil(t, err)

		_, err = Read(broken, dir)
		var malformed *MalformedEnvelopeError
		assert.True(t, errors.As(err, &malformed), "field %s", field)
		assert.Equal(t, field, malformed.Field)
	}
}

func TestExampleScenario(t *testing.T) {
	alice := newPersona(t, "alice")
	bob := newPersona(t, "bob")

	data := map[string]interface{}{"text": "hello"}
	plainJSON, err := json.Marshal(data)
	assert.Nil(t, err)

	v := New("test", data)
	err = v.Encrypt(alice, []*persona.Persona{bob.PublicPersona()})
	assert.Nil(t, err)
	err = v.Sign(alice)
	assert.Nil(t, err)

	b, err := v.JSON()
	assert.Nil(t, err)

	var w wireVesicle
	err = json.Unmarshal(b, &w)
	assert.Nil(t, err)
	assert.Equal(t, "0.1-AES256", w.Encoding)
	assert.Equal(t, 1, len(w.Keycrypt))
	_, ok := w.Keycrypt[bob.ID]
	assert.True(t, ok)

	payload, err := base64.URLEncoding.DecodeString(w.Payload)
	assert.Nil(t, err)
	assert.NotEmpty(t, payload)
	assert.NotEqual(t, plainJSON, payload)
}
