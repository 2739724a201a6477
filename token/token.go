// Package token generates opaque session tokens and short numeric
// verification codes from a cryptographically secure source.
package token

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	tokenSize = 32

	codeFloor = 100_000
	codeSpan  = 900_000
	// Largest multiple of codeSpan that fits in a uint32; draws at or above it
	// are rejected so that every code is equally likely.
	codeLimit = (1 << 32) / codeSpan * codeSpan
)

// Generator draws tokens and codes from an io.Reader.
type Generator struct {
	rand io.Reader
}

// Default reads from crypto/rand.
var Default = New(nil)

// New returns a Generator reading from r, or from crypto/rand when r is nil.
// Tests inject a deterministic reader here.
func New(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Token returns 32 random bytes as 64 lowercase hex characters.
func (g *Generator) Token() (string, error) {
	var buf [tokenSize]byte
	if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

// Code returns a uniformly distributed decimal code in "100000".."999999".
func (g *Generator) Code() (string, error) {
	var buf [4]byte
	for {
		if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
			return "", err
		}
		n := binary.BigEndian.Uint32(buf[:])
		if uint64(n) >= codeLimit {
			continue
		}
		return fmt.Sprintf("%06d", codeFloor+n%codeSpan), nil
	}
}

// Token draws from Default.
func Token() (string, error) {
	return Default.Token()
}

// Code draws from Default.
func Code() (string, error) {
	return Default.Code()
}
