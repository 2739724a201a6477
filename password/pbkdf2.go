package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	minIterations = 100_000
	minSaltLength = 16
	minKeyLength  = 32
	separator     = ":"
)

// Config holds the single global PBKDF2 parameter set.
//
// Changing any field invalidates every hash produced with the previous values;
// stored hashes carry no parameters and are not migrated automatically.
type Config struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// DefaultConfig returns PBKDF2-SHA256 with 100k iterations, a 16-byte salt and
// a 32-byte derived key.
func DefaultConfig() Config {
	return Config{
		Iterations: minIterations,
		SaltLength: minSaltLength,
		KeyLength:  minKeyLength,
	}
}

// PBKDF2 hashes and verifies passwords with PBKDF2-HMAC-SHA256.
//
// PBKDF2 instances are immutable after construction and safe for concurrent use.
type PBKDF2 struct {
	config Config
	rand   io.Reader
}

// NewPBKDF2 validates cfg and returns a hasher reading salts from crypto/rand.
func NewPBKDF2(cfg Config) (*PBKDF2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &PBKDF2{config: cfg, rand: rand.Reader}, nil
}

// Hash derives a key from password with a fresh random salt and returns
// hex(salt) + ":" + hex(key).
func (p *PBKDF2) Hash(password string) (string, error) {
	salt := make([]byte, p.config.SaltLength)
	if _, err := io.ReadFull(p.rand, salt); err != nil {
		return "", err
	}

	key := p.derive(password, salt)
	return hex.EncodeToString(salt) + separator + hex.EncodeToString(key), nil
}

// Verify reports whether password matches encodedHash. Any malformed
// encodedHash yields false.
func (p *PBKDF2) Verify(password, encodedHash string) bool {
	salt, stored, ok := decode(encodedHash)
	if !ok {
		return false
	}

	computed := p.derive(password, salt)
	return subtle.ConstantTimeCompare(computed, stored) == 1
}

func (p *PBKDF2) derive(password string, salt []byte) []byte {
	// Password processing uses raw string bytes exactly as provided.
	return pbkdf2.Key([]byte(password), salt, p.config.Iterations, p.config.KeyLength, sha256.New)
}

func decode(encodedHash string) (salt, key []byte, ok bool) {
	parts := strings.Split(encodedHash, separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, nil, false
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, false
	}
	key, err = hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, false
	}
	return salt, key, true
}

func validateConfig(cfg Config) error {
	if cfg.Iterations < minIterations {
		return errors.New("password iterations must be >= 100000")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 32")
	}
	return nil
}
