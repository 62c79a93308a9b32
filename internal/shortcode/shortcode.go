// Package shortcode generates the random short codes assigned to URLs.
package shortcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ashmarin/shortlinker/internal/models"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// MinLength is the shortest allowed code. Anything below makes
	// collisions likely at trivial scale.
	MinLength = 3

	// DefaultLength keeps the collision probability negligible: 62^8 codes.
	DefaultLength = 8

	// triesToGenerateUniqueCode bounds the collision-retry loop. At 62^8
	// exhausting it means the store is broken, not crowded.
	triesToGenerateUniqueCode = 100
)

type shortChecker interface {
	IsShortTaken(ctx context.Context, short string) bool
}

// Generator produces collision-free codes by drawing uniformly from a
// 62-character alphabet and retrying against the store.
type Generator struct {
	store  shortChecker
	length int
}

// New creates a Generator producing codes of the given length.
func New(store shortChecker, length int) (*Generator, error) {
	if length < MinLength {
		return nil, fmt.Errorf("short code length %d is below the minimum of %d", length, MinLength)
	}

	return &Generator{
		store:  store,
		length: length,
	}, nil
}

// Generate returns a code that is not yet present in the store.
// Retry exhaustion is an invariant violation and reported as internal.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < triesToGenerateUniqueCode; i++ {
		short, err := randomString(g.length)
		if err != nil {
			return "", err
		}
		if !g.store.IsShortTaken(ctx, short) {
			return short, nil
		}
	}

	return "", fmt.Errorf(
		"%w: no unique short code after %d attempts",
		models.ErrInternal,
		triesToGenerateUniqueCode,
	)
}

func randomString(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))

	for i := range result {
		randomIndex, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		result[i] = alphabet[randomIndex.Int64()]
	}

	return string(result), nil
}
