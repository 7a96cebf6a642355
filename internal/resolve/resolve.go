// Package resolve maps classified terms to canonical identifiers.
package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

// ErrNotFound is returned when a resolver has no identifier for a term.
var ErrNotFound = errors.New("identifier not found")

// Resolver returns the canonical identifier of a labeled term.
type Resolver interface {
	Resolve(ctx context.Context, term string, label models.Label) (string, error)
}

// MintURI derives a stable identifier from a name: "r" followed by the first
// eight hex digits of the SHA-256 of the lower-cased name with spaces and
// commas removed, as a decimal number below 1e8.
func MintURI(name string) string {
	s := strings.NewReplacer(" ", "", ",", "").Replace(strings.ToLower(name))
	sum := sha256.Sum256([]byte(s))
	n, _ := strconv.ParseUint(hex.EncodeToString(sum[:4]), 16, 64)
	return "r" + strconv.FormatUint(n%100000000, 10)
}

// HashResolver mints identifiers for people, places and organizations.
// Plain terms have no identifier.
type HashResolver struct{}

// Resolve implements Resolver.
func (HashResolver) Resolve(_ context.Context, term string, label models.Label) (string, error) {
	switch label {
	case models.LabelPerson, models.LabelPlace, models.LabelOrganization:
		if strings.TrimSpace(term) == "" {
			return "", ErrNotFound
		}
		return MintURI(term), nil
	default:
		return "", ErrNotFound
	}
}

// Chain tries resolvers in order and returns the first identifier found.
type Chain []Resolver

// Resolve implements Resolver. Errors other than ErrNotFound stop the chain.
func (c Chain) Resolve(ctx context.Context, term string, label models.Label) (string, error) {
	for _, r := range c {
		uri, err := r.Resolve(ctx, term, label)
		if err == nil {
			return uri, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}
