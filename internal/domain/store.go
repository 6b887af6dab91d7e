package domain

// Cipher reversibly obscures short strings for persistence.
// Decrypt returns its input unchanged when it cannot be decrypted.
type Cipher interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) string
}

// Store handles local persistence (BoltDB + memory).
// Keys are logical names; the store applies its namespace prefix.
type Store interface {
	// === Plain values ===
	GetString(key string) (string, bool)
	SetString(key, value string) error
	GetInt(key string) (int, bool)
	SetInt(key string, value int) error
	Delete(key string) error

	// === Encrypted values ===
	GetSecure(key string) (string, bool)
	SetSecure(key, value string) error

	// === Events ===
	AppendEvent(event Event) error
	Events() ([]Event, error)
	FlushEvents() error

	Close() error
}
