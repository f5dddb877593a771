// Package location resolves free-text locations to a company's canonical
// location names.
package location

import (
	"context"
	"log/slog"
)

// AliasLookup resolves an alias within a company. ok is false on a miss.
type AliasLookup interface {
	LookupLocation(ctx context.Context, companyID, alias string) (location string, ok bool, err error)
}

// Normalizer maps raw locations through a company's alias table.
type Normalizer struct {
	Aliases AliasLookup
	Logger  *slog.Logger
}

// NewNormalizer returns a Normalizer backed by aliases.
func NewNormalizer(aliases AliasLookup) *Normalizer {
	return &Normalizer{Aliases: aliases}
}

// Normalize returns the canonical location for raw, or raw unchanged when no
// alias matches. It never fails: a lookup error is logged and treated as a
// miss.
func (n *Normalizer) Normalize(ctx context.Context, companyID, raw string) string {
	if n == nil || n.Aliases == nil {
		return raw
	}

	location, ok, err := n.Aliases.LookupLocation(ctx, companyID, raw)
	if err != nil {
		n.logger().Warn("location alias lookup failed, using raw location",
			"company", companyID, "location", raw, "error", err)
		return raw
	}
	if !ok {
		return raw
	}
	return location
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
