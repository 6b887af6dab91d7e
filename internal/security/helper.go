// Package security provides session tokens and light-weight obfuscation of
// locally cached strings. The cipher key is derived from a fixed salt, so the
// encryption protects against casual inspection only.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"lukechampine.com/blake3"
)

const (
	keySalt      = "EggInferno2Salt"
	tokenEntropy = 16 // random bytes mixed into each session token

	// Argon2id parameters for deriving the cipher key from the salt
	argonTime    = 1
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// DefaultAllowedHosts are the hosts ValidateEndpoint accepts by default
var DefaultAllowedHosts = []string{"egginferno2.com", "www.egginferno2.com"}

// Helper generates session tokens, encrypts cached strings and validates endpoints.
// A Helper is safe for concurrent use.
type Helper struct {
	aead    cipher.AEAD
	allowed map[string]struct{}
	now     func() time.Time
	random  io.Reader
}

// Option configures a Helper.
type Option func(*Helper)

// WithAllowedHosts replaces the endpoint allow-list.
func WithAllowedHosts(hosts ...string) Option {
	return func(h *Helper) {
		h.allowed = make(map[string]struct{}, len(hosts))
		for _, host := range hosts {
			h.allowed[strings.ToLower(host)] = struct{}{}
		}
	}
}

// WithClock sets the time source used for session tokens.
func WithClock(now func() time.Time) Option {
	return func(h *Helper) {
		h.now = now
	}
}

// WithRandom sets the entropy source for tokens and nonces.
func WithRandom(r io.Reader) Option {
	return func(h *Helper) {
		h.random = r
	}
}

// NewHelper creates a Helper with the key derived from the built-in salt.
func NewHelper(opts ...Option) (*Helper, error) {
	key := argon2.IDKey([]byte(keySalt), []byte(keySalt), argonTime, argonMemory, argonThreads, argonKeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	h := &Helper{
		aead:   aead,
		now:    time.Now,
		random: rand.Reader,
	}
	WithAllowedHosts(DefaultAllowedHosts...)(h)
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// GenerateSessionToken returns a hex BLAKE3-256 digest of the current time
// combined with 16 random bytes. Tokens are not checked for reuse.
func (h *Helper) GenerateSessionToken() (string, error) {
	entropy := make([]byte, tokenEntropy)
	if _, err := io.ReadFull(h.random, entropy); err != nil {
		return "", fmt.Errorf("failed to read token entropy: %w", err)
	}

	ts := float64(h.now().UnixNano()) / float64(time.Second)
	combined := strconv.FormatFloat(ts, 'f', -1, 64) + "_" + base64.StdEncoding.EncodeToString(entropy)

	digest := blake3.Sum256([]byte(combined))
	return hex.EncodeToString(digest[:]), nil
}

// Encrypt seals plaintext with AES-GCM and returns base64(nonce|ciphertext).
// If sealing is impossible the plaintext is returned unchanged.
func (h *Helper) Encrypt(plaintext string) string {
	nonce := make([]byte, h.aead.NonceSize(), h.aead.NonceSize()+len(plaintext)+h.aead.Overhead())
	if _, err := io.ReadFull(h.random, nonce); err != nil {
		return plaintext
	}
	sealed := h.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt. Input that is not valid base64, fails
// authentication, or does not decode to UTF-8 is returned unchanged.
func (h *Helper) Decrypt(ciphertext string) string {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext
	}

	nonceSize := h.aead.NonceSize()
	if len(data) < nonceSize+h.aead.Overhead() {
		return ciphertext
	}

	plain, err := h.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil || !utf8.Valid(plain) {
		return ciphertext
	}
	return string(plain)
}

// ValidateEndpoint reports whether rawURL uses https and targets an allowed host.
func (h *Helper) ValidateEndpoint(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}
	_, ok := h.allowed[strings.ToLower(u.Hostname())]
	return ok
}
