// Package gameid generates sortable identifiers for blackjack games.
//
// An id is a UUIDv7 written as 26 characters of Crockford base32, so ids
// sort by creation time and are safe to use in file names and lock keys.
package gameid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Crockford base32, lower case.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the number of characters in an id.
const Length = 26

// Generator mints ids from an entropy source.
type Generator struct {
	entropy io.Reader
}

// NewGenerator returns a generator reading randomness from entropy, or from
// crypto/rand when entropy is nil.
func NewGenerator(entropy io.Reader) *Generator {
	if entropy == nil {
		entropy = rand.Reader
	}
	return &Generator{entropy: entropy}
}

// Generate returns a new id from crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate returns a new id.
func (g *Generator) Generate() string {
	id, err := uuid.NewV7FromReader(g.entropy)
	if err != nil {
		panic("failed to generate game id: " + err.Error())
	}
	return encode(id)
}

// encode writes the UUID as 130 bits, left-padded with two zero bits.
func encode(id uuid.UUID) string {
	out := make([]byte, Length)
	for i := range Length {
		var v uint8
		for b := range 5 {
			bit := i*5 + b - 2
			v <<= 1
			if bit >= 0 && id[bit/8]&(0x80>>(bit%8)) != 0 {
				v |= 1
			}
		}
		out[i] = alphabet[v]
	}
	return string(out)
}

// Parse decodes an id back into its UUID.
func Parse(id string) (uuid.UUID, error) {
	if err := Validate(id); err != nil {
		return uuid.Nil, err
	}
	var u uuid.UUID
	for i := range Length {
		v := strings.IndexByte(alphabet, id[i])
		for b := range 5 {
			bit := i*5 + b - 2
			if bit < 0 || v&(0x10>>b) == 0 {
				continue
			}
			u[bit/8] |= 0x80 >> (bit % 8)
		}
	}
	return u, nil
}

// Time returns the creation time embedded in an id.
func Time(id string) (time.Time, error) {
	u, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("game ID %s is not time ordered (version %d)", id, u.Version())
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec), nil
}

// Validate checks that id has the shape of a game id.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("game ID must be exactly %d characters, got %d", Length, len(id))
	}
	// The first character carries only three bits.
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
