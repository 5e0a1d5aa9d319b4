package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"
)

const (
	envelopeVersion byte = 1

	// HeaderLen is version(1) | issued_at(8) | validity(4) | nonce(8) | step(2).
	HeaderLen = 1 + 8 + 4 + NonceLen + 2
	NonceLen  = 8
	TagLen    = sha256.Size

	// TokenLen is the hex length of a step token.
	TokenLen = 2 * (HeaderLen + TagLen)
)

var (
	ErrTokenLength  = errors.New("token length")
	ErrTokenFormat  = errors.New("token is not hex")
	ErrTokenVersion = errors.New("token version")
)

// Header is the signed, cleartext part of a step token.
type Header struct {
	IssuedAt time.Time
	Validity time.Duration
	Nonce    [NonceLen]byte
	Step     uint16
}

func (h Header) ExpiresAt() time.Time { return h.IssuedAt.Add(h.Validity) }

// Bytes returns the fixed-size wire form of the header.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderLen)
	b[0] = envelopeVersion
	binary.BigEndian.PutUint64(b[1:9], uint64(h.IssuedAt.Unix()))
	binary.BigEndian.PutUint32(b[9:13], uint32(h.Validity/time.Second))
	copy(b[13:13+NonceLen], h.Nonce[:])
	binary.BigEndian.PutUint16(b[13+NonceLen:], h.Step)
	return b
}

// Envelope is a decoded step token.
type Envelope struct {
	Header Header
	raw    []byte
	Tag    []byte
}

// HeaderBytes returns the header exactly as presented.
func (e Envelope) HeaderBytes() []byte { return e.raw }

// ReplayKey identifies the token for single-use tracking.
func (e Envelope) ReplayKey() string {
	sum := sha256.Sum256(e.Tag)
	return hex.EncodeToString(sum[:])
}

// Seal appends tag to the header and hex-encodes the result.
func Seal(h Header, tag []byte) string {
	return hex.EncodeToString(append(h.Bytes(), tag...))
}

// CheckFormat performs the cheap structural checks on a presented token.
// It never touches key material.
func CheckFormat(token string) error {
	if len(token) != TokenLen {
		return ErrTokenLength
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return ErrTokenFormat
		}
	}
	return nil
}

// Open decodes a presented token without verifying it.
func Open(token string) (Envelope, error) {
	if err := CheckFormat(token); err != nil {
		return Envelope{}, err
	}
	b, err := hex.DecodeString(token)
	if err != nil {
		return Envelope{}, ErrTokenFormat
	}
	if b[0] != envelopeVersion {
		return Envelope{}, ErrTokenVersion
	}
	var h Header
	h.IssuedAt = time.Unix(int64(binary.BigEndian.Uint64(b[1:9])), 0).UTC()
	h.Validity = time.Duration(binary.BigEndian.Uint32(b[9:13])) * time.Second
	copy(h.Nonce[:], b[13:13+NonceLen])
	h.Step = binary.BigEndian.Uint16(b[13+NonceLen : HeaderLen])
	return Envelope{Header: h, raw: b[:HeaderLen], Tag: b[HeaderLen:]}, nil
}
