package keypair

import (
	crypto_rand "crypto/rand"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"
)

// KeyPair holds a NaCl box keypair used to wrap content keys for a
// recipient. Anyone can seal to the public half; only the private half
// opens.
type KeyPair struct {
	Public  string `json:"public"`
	Private string `json:"private,omitempty"`
	public  *[32]byte
	private *[32]byte
}

func New() (kp KeyPair, err error) {
	publicKey, privateKey, err := box.GenerateKey(crypto_rand.Reader)
	if err != nil {
		return
	}
	kp.Public = base64.URLEncoding.EncodeToString(publicKey[:])
	kp.Private = base64.URLEncoding.EncodeToString(privateKey[:])
	kp.public = publicKey
	kp.private = privateKey
	return
}

// PublicKey returns a half-key pair that can seal but not open.
func (kp KeyPair) PublicKey() (kpPublic KeyPair) {
	kpPublic = KeyPair{}
	kpPublic.Public = kp.Public
	kpPublic.public, _ = keyStringToBytes(kp.Public, 32)
	return
}

func FromPair(public, private string) (kp KeyPair, err error) {
	kp.Public, kp.Private = public, private
	kp.public, err = keyStringToBytes(public, 32)
	if err != nil {
		return
	}
	kp.private, err = keyStringToBytes(private, 32)
	return
}

// FromPublic generates a half-key pair
func FromPublic(public string) (kp KeyPair, err error) {
	kp.Public = public
	kp.public, err = keyStringToBytes(public, 32)
	return
}

type keyPairJSON struct {
	Public  string `json:"public"`
	Private string `json:"private,omitempty"`
}

func (kp KeyPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyPairJSON{Public: kp.Public, Private: kp.Private})
}

func (kp *KeyPair) UnmarshalJSON(b []byte) (err error) {
	var kpBase keyPairJSON
	err = json.Unmarshal(b, &kpBase)
	if err != nil {
		return
	}
	kp.Public = kpBase.Public
	kp.Private = kpBase.Private
	if len(kpBase.Public) > 0 {
		kp.public, err = keyStringToBytes(kpBase.Public, 32)
		if err != nil {
			return
		}
	}
	if len(kpBase.Private) > 0 {
		kp.private, err = keyStringToBytes(kpBase.Private, 32)
		if err != nil {
			return
		}
	}
	return
}

// Seal encrypts msg so that only the holder of the private half can
// read it. The sender stays anonymous, so opening needs no sender key.
func (kp KeyPair) Seal(msg []byte) (encrypted []byte, err error) {
	if kp.public == nil {
		err = errors.New("keypair has no public key")
		return
	}
	encrypted, err = box.SealAnonymous(nil, msg, kp.public, crypto_rand.Reader)
	return
}

// Open decrypts a blob produced by Seal.
func (kp KeyPair) Open(encrypted []byte) (msg []byte, err error) {
	if kp.private == nil {
		err = errors.New("keypair has no private key")
		return
	}
	msg, ok := box.OpenAnonymous(nil, encrypted, kp.public, kp.private)
	if !ok {
		err = errors.New("keypair decryption failed")
	}
	return msg, err
}

func keyStringToBytes(s string, n int) (key *[32]byte, err error) {
	keyBytes, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return
	}
	if len(keyBytes) < n {
		err = errors.Errorf("key too short: %d bytes", len(keyBytes))
		return
	}
	key = new([32]byte)
	copy(key[:], keyBytes[:n])
	return
}
