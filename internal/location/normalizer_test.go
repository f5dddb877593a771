package location

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeAliases map[string]string

func (f fakeAliases) LookupLocation(_ context.Context, companyID, alias string) (string, bool, error) {
	loc, ok := f[companyID+"/"+strings.ToLower(strings.TrimSpace(alias))]
	return loc, ok, nil
}

type failingAliases struct{}

func (failingAliases) LookupLocation(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("datastore unreachable")
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(fakeAliases{"acme/wh1": "Main Warehouse"})
	ctx := context.Background()

	tests := []struct {
		company string
		raw     string
		want    string
	}{
		{"acme", "WH1", "Main Warehouse"},
		{"acme", "wh1", "Main Warehouse"},
		{"acme", "Truck 7", "Truck 7"},
		{"acme", "", ""},
		{"globex", "WH1", "WH1"},
	}

	for _, tt := range tests {
		if got := n.Normalize(ctx, tt.company, tt.raw); got != tt.want {
			t.Errorf("Normalize(%q, %q) = %q, want %q", tt.company, tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer(fakeAliases{"acme/wh1": "Main Warehouse"})
	ctx := context.Background()

	for _, raw := range []string{"WH1", "unknown"} {
		first := n.Normalize(ctx, "acme", raw)
		second := n.Normalize(ctx, "acme", raw)
		if first != second {
			t.Errorf("Normalize(%q) not stable: %q then %q", raw, first, second)
		}
	}
}

func TestNormalizePassesThroughOnLookupError(t *testing.T) {
	n := NewNormalizer(failingAliases{})
	if got := n.Normalize(context.Background(), "acme", "WH1"); got != "WH1" {
		t.Errorf("expected raw location on lookup error, got %q", got)
	}

	var nilNormalizer *Normalizer
	if got := nilNormalizer.Normalize(context.Background(), "acme", "WH1"); got != "WH1" {
		t.Errorf("expected nil normalizer to pass through, got %q", got)
	}
}
