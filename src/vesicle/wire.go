package vesicle

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// wireVesicle is the JSON form exchanged between soumas and stored in
// the local database.
type wireVesicle struct {
	ID          string            `json:"id"`
	MessageType string            `json:"message_type"`
	Payload     string            `json:"payload"`
	Encoding    string            `json:"encoding"`
	Signature   string            `json:"signature,omitempty"`
	AuthorID    string            `json:"author_id,omitempty"`
	Keycrypt    map[string]string `json:"keycrypt,omitempty"`
	SoumaID     string            `json:"souma_id,omitempty"`
	Created     string            `json:"created"`
}

// JSON returns the wire representation. A vesicle that was never
// encrypted or signed is encoded transiently: its data field is
// rendered into the payload slot for this call only, and the vesicle
// itself is left untouched.
func (v *Vesicle) JSON() (b []byte, err error) {
	payload := v.Payload
	if payload == nil {
		if v.Data == nil {
			return nil, errors.Wrapf(ErrEmptyData, "cannot serialize %s", v)
		}
		payload, err = json.Marshal(v.Data)
		if err != nil {
			return nil, errors.Wrap(err, "encoding data")
		}
	}

	created := v.Created
	if created.IsZero() {
		created = time.Now()
	}

	w := wireVesicle{
		ID:          v.ID,
		MessageType: v.MessageType,
		Payload:     base64.URLEncoding.EncodeToString(payload),
		Encoding:    v.Encoding,
		AuthorID:    v.AuthorID,
		SoumaID:     v.SoumaID,
		Created:     created.Format(time.RFC3339Nano),
	}
	if v.Signature != nil {
		w.Signature = base64.URLEncoding.EncodeToString(v.Signature)
	}
	if v.Encrypted() {
		w.Keycrypt = v.Keycrypt
	}

	b, err = json.Marshal(w)
	return b, errors.Wrapf(err, "serializing %s", v)
}

// Read reconstructs a vesicle from its wire representation. The
// declared protocol version is checked exactly, required fields are
// enforced, and an attached signature is verified against dir before
// the vesicle is returned.
func Read(data []byte, dir Directory) (v *Vesicle, err error) {
	var w wireVesicle
	if err = json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "parsing envelope")
	}

	switch {
	case w.ID == "":
		return nil, &MalformedEnvelopeError{Field: "id"}
	case w.MessageType == "":
		return nil, &MalformedEnvelopeError{Field: "message_type"}
	case w.Payload == "":
		return nil, &MalformedEnvelopeError{Field: "payload"}
	case w.Encoding == "":
		return nil, &MalformedEnvelopeError{Field: "encoding"}
	case w.Created == "":
		return nil, &MalformedEnvelopeError{Field: "created"}
	}

	parts := strings.SplitN(w.Encoding, "-", 2)
	if len(parts) != 2 {
		return nil, &MalformedEnvelopeError{Field: "encoding"}
	}
	version, cipherTag := parts[0], parts[1]
	if version != Version {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got %q, expecting %q", version, Version)
	}

	encrypted := cipherTag != cipherTagPlain
	if encrypted && len(w.Keycrypt) == 0 {
		return nil, &MalformedEnvelopeError{Field: "keycrypt"}
	}
	if (encrypted || w.Signature != "") && w.AuthorID == "" {
		return nil, &MalformedEnvelopeError{Field: "author_id"}
	}

	payload, err := base64.URLEncoding.DecodeString(w.Payload)
	if err != nil {
		return nil, &MalformedEnvelopeError{Field: "payload"}
	}

	created, err := time.Parse(time.RFC3339Nano, w.Created)
	if err != nil {
		return nil, &MalformedEnvelopeError{Field: "created"}
	}

	v = new(Vesicle)
	v.ID = w.ID
	v.MessageType = w.MessageType
	v.Payload = payload
	v.Encoding = w.Encoding
	v.AuthorID = w.AuthorID
	v.SoumaID = w.SoumaID
	v.Created = created
	if encrypted {
		v.Keycrypt = w.Keycrypt
		v.state = StateEncrypted
	} else {
		v.state = StatePlain
	}

	if w.Signature != "" {
		v.Signature, err = base64.URLEncoding.DecodeString(w.Signature)
		if err != nil {
			return nil, &MalformedEnvelopeError{Field: "signature"}
		}
		valid, err := v.Verify(dir)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, errors.Wrapf(ErrInvalidSignature, "on %s", v)
		}
	}

	log.Debugf("%s read", v)
	return v, nil
}
