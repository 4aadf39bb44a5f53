// Package names generates human-readable run names.
package names

import (
	"errors"
	"fmt"

	"github.com/docker/docker/pkg/namesgenerator"
)

// DefaultAttempts bounds GenerateUnique when no limit is given.
const DefaultAttempts = 100

// ErrExhausted is returned when no free name was found.
var ErrExhausted = errors.New("no unique run name available")

// Taken reports whether a run name is already in use.
type Taken func(name string) bool

// Generate returns a random adjective_surname name (e.g., "focused_turing").
func Generate() string {
	return namesgenerator.GetRandomName(0)
}

// GenerateUnique returns a name for which taken reports false.
func GenerateUnique(taken Taken, attempts int) (string, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	for i := range attempts {
		// The generator appends a digit when retry > 0, which widens the pool
		// once the plain names start colliding.
		name := namesgenerator.GetRandomName(i / 2)
		if !taken(name) {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
}
