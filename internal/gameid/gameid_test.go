package gameid

import (
	"bytes"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsValidAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 200 {
		id := Generate()
		require.NoError(t, Validate(id))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateSortsByCreation(t *testing.T) {
	var ids []string
	for range 5 {
		ids = append(ids, Generate())
		time.Sleep(2 * time.Millisecond)
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids out of order: %v", ids)
}

func TestParseRoundTrip(t *testing.T) {
	u := uuid.Must(uuid.NewV7())
	id := encode(u)

	parsed, err := Parse(id)
	require.NoError(t, err)
	assert.Equal(t, u, parsed)

	_, err = Parse("not-an-id")
	require.Error(t, err)
}

func TestTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := Generate()

	created, err := Time(id)
	require.NoError(t, err)
	assert.WithinRange(t, created, before, time.Now().Add(time.Second))

	v4 := encode(uuid.New())
	_, err = Time(v4)
	require.ErrorContains(t, err, "not time ordered")
}

func TestGeneratorUsesEntropy(t *testing.T) {
	entropy := bytes.NewReader(bytes.Repeat([]byte{0xab}, 64))
	id := NewGenerator(entropy).Generate()
	require.NoError(t, Validate(id))

	u, err := Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr string
	}{
		{"valid", "01h5n0et5q6mt3v7ms1234abcd", ""},
		{"short", "01h5n0et5q6mt3v7ms123", "exactly 26"},
		{"long", "01h5n0et5q6mt3v7ms1234abcdef", "exactly 26"},
		{"overflowing first character", "81h5n0et5q6mt3v7ms1234abcd", "first character"},
		{"excluded letter", "01h5n0et5q6mt3v7ms1234abci", "invalid character"},
		{"upper case", "01H5N0ET5Q6MT3V7MS1234ABCD", "invalid character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEncodeBounds(t *testing.T) {
	var max uuid.UUID
	for i := range max {
		max[i] = 0xff
	}
	assert.Equal(t, "7"+strings.Repeat("z", 25), encode(max))
	assert.Equal(t, strings.Repeat("0", Length), encode(uuid.Nil))
}
