// Package storage defines the persisted form of a round. Game documents are
// JSON and are validated against an embedded schema whenever they are
// written or read, so a store never holds a document the engine could not
// load back.
package storage

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lox/blackjack/internal/game"
)

//go:embed schemas
var schemaFiles embed.FS

const gameSchemaURL = "https://blackjack.lox.dev/schemas/game.json"

var (
	// ErrNotFound is returned when a game or history record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a history record is archived twice.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidDocument wraps schema and decoding failures.
	ErrInvalidDocument = errors.New("invalid game document")
)

// Codec converts game state to and from its validated JSON document.
type Codec struct {
	schema *jsonschema.Schema
}

// NewCodec compiles the embedded game schema.
func NewCodec() (*Codec, error) {
	data, err := schemaFiles.ReadFile("schemas/game.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read game schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(gameSchemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add game schema: %w", err)
	}
	schema, err := compiler.Compile(gameSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile game schema: %w", err)
	}
	return &Codec{schema: schema}, nil
}

// MustCodec is NewCodec for callers that cannot recover from a broken
// embedded schema.
func MustCodec() *Codec {
	c, err := NewCodec()
	if err != nil {
		panic(err)
	}
	return c
}

// Encode marshals and validates a game.
func (c *Codec) Encode(g *game.GameState) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil game", ErrInvalidDocument)
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := c.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode validates and unmarshals a game document.
func (c *Codec) Decode(data []byte) (*game.GameState, error) {
	if err := c.Validate(data); err != nil {
		return nil, err
	}
	var g game.GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &g, nil
}

// Validate checks a raw document against the game schema.
func (c *Codec) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", ErrInvalidDocument, err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
