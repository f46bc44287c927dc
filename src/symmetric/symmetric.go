package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	crypto_rand "crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var keyInfo = []byte("glia-vesicle-content-key")

// DeriveKey stretches content key material into an AES-256 key.
func DeriveKey(material []byte) (key []byte, err error) {
	key = make([]byte, KeySize)
	_, err = io.ReadFull(hkdf.New(sha256.New, material, nil, keyInfo), key)
	return
}

// Encrypt seals msg with AES-256-GCM. The nonce is stored in the first
// bytes of the returned ciphertext.
func Encrypt(msg, key []byte) (encrypted []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return
	}

	// You must use a different nonce for each message you encrypt with
	// the same key. A random value provides a sufficiently small
	// probability of repeats.
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(crypto_rand.Reader, nonce[:]); err != nil {
		return
	}

	encrypted = gcm.Seal(nonce, nonce, msg, nil)
	return
}

// Decrypt opens a ciphertext produced by Encrypt. The nonce is taken
// from the first bytes of the ciphertext.
func Decrypt(encrypted, key []byte) (decrypted []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return
	}
	if len(encrypted) < gcm.NonceSize() {
		err = errors.New("ciphertext too short")
		return
	}
	decrypted, err = gcm.Open(nil, encrypted[:gcm.NonceSize()], encrypted[gcm.NonceSize():], nil)
	if err != nil {
		err = errors.Wrap(err, "decryption failed")
	}
	return
}

func newGCM(key []byte) (gcm cipher.AEAD, err error) {
	if len(key) != KeySize {
		err = errors.Errorf("key must be %d bytes, got %d", KeySize, len(key))
		return
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return
	}
	return cipher.NewGCM(block)
}
