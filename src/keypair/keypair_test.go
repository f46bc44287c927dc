package keypair

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSealOpen(t *testing.T) {
	kp, err := New()
	assert.Nil(t, err)

	msg := []byte("the content key")
	encrypted, err := kp.Seal(msg)
	assert.Nil(t, err)
	assert.NotEqual(t, msg, encrypted)

	decrypted, err := kp.Open(encrypted)
	assert.Nil(t, err)
	assert.Equal(t, msg, decrypted)

	// a different keypair cannot open it
	other, err := New()
	assert.Nil(t, err)
	_, err = other.Open(encrypted)
	assert.NotNil(t, err)

	// the public half alone cannot open it
	_, err = kp.PublicKey().Open(encrypted)
	assert.NotNil(t, err)
}

func TestFromPair(t *testing.T) {
	kp, err := New()
	assert.Nil(t, err)

	kp2, err := FromPair(kp.Public, kp.Private)
	assert.Nil(t, err)

	encrypted, err := kp2.Seal([]byte("hello"))
	assert.Nil(t, err)
	decrypted, err := kp.Open(encrypted)
	assert.Nil(t, err)
	assert.Equal(t, []byte("hello"), decrypted)
}

func TestSignVerify(t *testing.T) {
	kp, err := NewSign()
	assert.Nil(t, err)

	msg := []byte("payload bytes")
	sig, err := kp.Sign(msg)
	assert.Nil(t, err)
	assert.True(t, kp.Verify(msg, sig))

	// verification with just the public half
	pub, err := SignFromPublic(kp.Public)
	assert.Nil(t, err)
	assert.True(t, pub.Verify(msg, sig))

	// tampered message
	msg[0] ^= 0xff
	assert.False(t, kp.Verify(msg, sig))

	// the public half cannot sign
	_, err = pub.Sign(msg)
	assert.NotNil(t, err)
}

func TestMarshalDropsPrivate(t *testing.T) {
	kp, err := New()
	assert.Nil(t, err)

	b, err := json.Marshal(kp.PublicKey())
	assert.Nil(t, err)
	assert.False(t, strings.Contains(string(b), "private"))

	var kp2 KeyPair
	err = json.Unmarshal(b, &kp2)
	assert.Nil(t, err)
	assert.Equal(t, kp.Public, kp2.Public)
}
