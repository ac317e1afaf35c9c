// Package uuid provides a pulse.IDGenerator backed by google/uuid.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces random UUIDv4 run IDs.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a new random UUID string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}
