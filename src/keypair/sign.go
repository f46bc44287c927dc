package keypair

import (
	crypto_rand "crypto/rand"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/sign"
)

// SignKeyPair holds a NaCl signing keypair producing detached
// signatures over arbitrary byte strings.
type SignKeyPair struct {
	Public  string `json:"public"`
	Private string `json:"private,omitempty"`
	public  *[32]byte
	private *[64]byte
}

func NewSign() (kp SignKeyPair, err error) {
	publicKey, privateKey, err := sign.GenerateKey(crypto_rand.Reader)
	if err != nil {
		return
	}
	kp.Public = base64.URLEncoding.EncodeToString(publicKey[:])
	kp.Private = base64.URLEncoding.EncodeToString(privateKey[:])
	kp.public = publicKey
	kp.private = privateKey
	return
}

// PublicKey returns a half-key pair that can verify but not sign.
func (kp SignKeyPair) PublicKey() (kpPublic SignKeyPair) {
	kpPublic = SignKeyPair{}
	kpPublic.Public = kp.Public
	kpPublic.public, _ = keyStringToBytes(kp.Public, 32)
	return
}

func SignFromPublic(public string) (kp SignKeyPair, err error) {
	kp.Public = public
	kp.public, err = keyStringToBytes(public, 32)
	return
}

func (kp SignKeyPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyPairJSON{Public: kp.Public, Private: kp.Private})
}

func (kp *SignKeyPair) UnmarshalJSON(b []byte) (err error) {
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
		var keyBytes []byte
		keyBytes, err = base64.URLEncoding.DecodeString(kpBase.Private)
		if err != nil {
			return
		}
		if len(keyBytes) < 64 {
			err = errors.Errorf("signing key too short: %d bytes", len(keyBytes))
			return
		}
		kp.private = new([64]byte)
		copy(kp.private[:], keyBytes[:64])
	}
	return
}

// Sign returns a detached signature over msg.
func (kp SignKeyPair) Sign(msg []byte) (signature []byte, err error) {
	if kp.private == nil {
		err = errors.New("signing keypair has no private key")
		return
	}
	signed := sign.Sign(nil, msg, kp.private)
	signature = signed[:sign.Overhead]
	return
}

// Verify checks a detached signature over msg.
func (kp SignKeyPair) Verify(msg, signature []byte) bool {
	if kp.public == nil || len(signature) != sign.Overhead {
		return false
	}
	signed := make([]byte, 0, len(signature)+len(msg))
	signed = append(signed, signature...)
	signed = append(signed, msg...)
	_, ok := sign.Open(nil, signed, kp.public)
	return ok
}
