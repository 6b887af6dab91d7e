package security

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHelper(t *testing.T, opts ...Option) *Helper {
	t.Helper()
	h, err := NewHelper(opts...)
	require.NoError(t, err)
	return h
}

func TestHelper_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t)

	inputs := []string{
		"",
		"1200",
		"hello world",
		"Egg Inferno 2 ~ !@#$%^&*()_+-=[]{};':\",./<>?",
		"Загрузка",
		"🔥 fire",
	}

	for _, in := range inputs {
		enc := h.Encrypt(in)
		assert.NotEqual(t, in, enc, "ciphertext should differ from %q", in)
		assert.Equal(t, in, h.Decrypt(enc))
	}
}

func TestHelper_EncryptIsNonDeterministic(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t)

	assert.NotEqual(t, h.Encrypt("same"), h.Encrypt("same"))
}

func TestHelper_KeyIsStableAcrossInstances(t *testing.T) {
	t.Parallel()
	a := newTestHelper(t)
	b := newTestHelper(t)

	assert.Equal(t, "cached", b.Decrypt(a.Encrypt("cached")))
}

func TestHelper_DecryptMalformedReturnsInput(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t)

	tests := []struct {
		name  string
		input string
	}{
		{name: "not base64", input: "not*base64!"},
		{name: "too short", input: "AAAA"},
		{name: "plain number", input: "1200"},
		{name: "valid base64 wrong key", input: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.input, h.Decrypt(tt.input))
		})
	}
}

func TestHelper_DecryptTamperedReturnsInput(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t)

	enc := []byte(h.Encrypt("secret"))
	// flip a character in the middle of the base64 payload
	if enc[10] == 'A' {
		enc[10] = 'B'
	} else {
		enc[10] = 'A'
	}
	assert.Equal(t, string(enc), h.Decrypt(string(enc)))
}

func TestHelper_EncryptWithoutEntropyReturnsInput(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t, WithRandom(bytes.NewReader(nil)))

	assert.Equal(t, "plain", h.Encrypt("plain"))
}

func TestHelper_GenerateSessionToken(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t)

	tok, err := h.GenerateSessionToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)
	_, err = hex.DecodeString(tok)
	assert.NoError(t, err)

	other, err := h.GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestHelper_GenerateSessionTokenDeterministicInputs(t *testing.T) {
	t.Parallel()

	fixed := time.Unix(1700000000, 0)
	entropy := bytes.Repeat([]byte{0x42}, 32)

	a := newTestHelper(t, WithClock(func() time.Time { return fixed }), WithRandom(bytes.NewReader(entropy)))
	b := newTestHelper(t, WithClock(func() time.Time { return fixed }), WithRandom(bytes.NewReader(entropy)))

	ta, err := a.GenerateSessionToken()
	require.NoError(t, err)
	tb, err := b.GenerateSessionToken()
	require.NoError(t, err)
	assert.Equal(t, ta, tb)
}

func TestHelper_GenerateSessionTokenEntropyFailure(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t, WithRandom(bytes.NewReader([]byte{1, 2, 3})))

	_, err := h.GenerateSessionToken()
	assert.Error(t, err)
}

func TestHelper_ValidateEndpoint(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "apex https", url: "https://egginferno2.com", want: true},
		{name: "www https with path", url: "https://www.egginferno2.com/api/v2/config", want: true},
		{name: "uppercase host", url: "https://EggInferno2.com/", want: true},
		{name: "explicit port", url: "https://egginferno2.com:443/", want: true},
		{name: "plain http", url: "http://egginferno2.com", want: false},
		{name: "foreign host", url: "https://evil.example.com", want: false},
		{name: "suffix trick", url: "https://egginferno2.com.evil.io", want: false},
		{name: "subdomain not listed", url: "https://cdn.egginferno2.com", want: false},
		{name: "garbage", url: "://", want: false},
		{name: "empty", url: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.ValidateEndpoint(tt.url))
		})
	}
}

func TestHelper_CustomAllowList(t *testing.T) {
	t.Parallel()
	h := newTestHelper(t, WithAllowedHosts("play.example.org"))

	assert.True(t, h.ValidateEndpoint("https://play.example.org"))
	assert.False(t, h.ValidateEndpoint("https://egginferno2.com"))
}

func TestObfuscate_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "a", "abc", "player-one", "\xff\xfe\x00", "Привет"} {
		out := Obfuscate(in)
		if in != "" {
			assert.NotEqual(t, in, out)
		}
		assert.Equal(t, in, Deobfuscate(out))
	}
}

func TestObfuscate_Shifts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bdf", Obfuscate("abc"))
	assert.Equal(t, "\x00", Obfuscate("\xff"))
}
