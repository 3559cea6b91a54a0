// Package codec decrypts the credit API's AES-CBC payloads into JSON
// documents. The strict PKCS7 check here is the pipeline's integrity
// gate: a wrong key, flipped IV, or truncated payload reliably breaks
// padding long before the JSON layer sees it.
package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Reason classifies a decrypt failure so callers can tell a corrupt
// transport or wrong key apart from a server that answered in plaintext.
type Reason string

const (
	ReasonMalformedInput Reason = "malformed input"
	ReasonInvalidPadding Reason = "invalid padding"
	ReasonUndecodable    Reason = "undecodable bytes"
	ReasonInvalidJSON    Reason = "invalid json"
)

// DecryptError is any failure between base64 input and a valid JSON
// document.
type DecryptError struct {
	Reason Reason
	Err    error
}

func (e *DecryptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decrypt: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decrypt: %s", e.Reason)
}

func (e *DecryptError) Unwrap() error { return e.Err }

func failure(reason Reason, err error) error {
	return &DecryptError{Reason: reason, Err: err}
}

// Config holds the fixed cipher parameters. Key is used as raw ASCII
// bytes (the upstream hands out a 32-character key string and expects
// exactly those bytes, not their hex decoding).
type Config struct {
	Key string
	IV  string
}

// Codec performs AES-CBC encryption and decryption with a fixed key and
// IV. It is stateless and safe to share.
type Codec struct {
	block cipher.Block
	iv    []byte
}

// New validates the key and IV lengths and builds a Codec.
func New(cfg Config) (*Codec, error) {
	block, err := aes.NewCipher([]byte(cfg.Key))
	if err != nil {
		return nil, eris.Wrapf(err, "codec: key must be 16/24/32 bytes, got %d", len(cfg.Key))
	}
	if len(cfg.IV) != aes.BlockSize {
		return nil, eris.Errorf("codec: iv must be %d bytes, got %d", aes.BlockSize, len(cfg.IV))
	}
	return &Codec{block: block, iv: []byte(cfg.IV)}, nil
}

// Decrypt turns a base64 ciphertext into UTF-8 JSON text. The returned
// bytes are guaranteed to be syntactically valid JSON; any failure is a
// *DecryptError.
func (c *Codec) Decrypt(b64 string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, failure(ReasonMalformedInput, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, failure(ReasonMalformedInput,
			eris.Errorf("ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize))
	}

	// Fresh decrypter per payload: every response is its own CBC chain.
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(plain, ciphertext)

	plain, err = unpadPKCS7(plain)
	if err != nil {
		return nil, failure(ReasonInvalidPadding, err)
	}

	text, err := decodeText(plain)
	if err != nil {
		return nil, failure(ReasonUndecodable, err)
	}

	if !json.Valid(text) {
		return nil, failure(ReasonInvalidJSON, eris.New("plaintext is not a JSON document"))
	}
	return text, nil
}

// DecryptInto decrypts and unmarshals the payload into v.
func (c *Codec) DecryptInto(b64 string, v any) error {
	text, err := c.Decrypt(b64)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(text, v); err != nil {
		return failure(ReasonInvalidJSON, err)
	}
	return nil
}

// Encrypt is the inverse of Decrypt: PKCS7-pad, CBC-encrypt, base64.
// Exists for round-trip tests and local fixture generation; the live
// API only ever sends us ciphertext.
func (c *Codec) Encrypt(plaintext []byte) string {
	padded := padPKCS7(plaintext)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out)
}

// unpadPKCS7 strictly validates and strips PKCS7 padding: the final
// byte n must be 1..blockSize and the last n bytes must all equal n.
func unpadPKCS7(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, eris.New("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, eris.Errorf("padding length %d out of range", n)
	}
	for _, pad := range b[len(b)-n:] {
		if int(pad) != n {
			return nil, eris.Errorf("non-uniform padding tail (want %d, saw %d)", n, pad)
		}
	}
	return b[:len(b)-n], nil
}

func padPKCS7(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// decodeText decodes plaintext bytes as UTF-8, then GB18030, then
// Windows-1252. The upstream is not encoding-consistent across its
// endpoints, so a fixed fallback order stands in for charset metadata
// it never sends.
func decodeText(b []byte) ([]byte, error) {
	if utf8.Valid(b) {
		return b, nil
	}
	if out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(b); err == nil {
		return out, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return nil, eris.Wrap(err, "no fallback encoding matched")
	}
	return out, nil
}
