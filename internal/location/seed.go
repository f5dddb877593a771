package location

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the operator-maintained alias file, keyed by company name:
//
//	companies:
//	  Acme:
//	    - alias: WH1
//	      location: Main Warehouse
type Seed struct {
	Companies map[string][]SeedAlias `yaml:"companies"`
}

// SeedAlias is one alias entry of a Seed.
type SeedAlias struct {
	Alias    string `yaml:"alias"`
	Location string `yaml:"location"`
}

// LoadSeed parses and validates an alias file.
func LoadSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing alias file: %w", err)
	}

	for company, aliases := range s.Companies {
		seen := make(map[string]bool, len(aliases))
		for i, a := range aliases {
			if strings.TrimSpace(a.Alias) == "" || strings.TrimSpace(a.Location) == "" {
				return nil, fmt.Errorf("company %q entry %d: alias and location are required", company, i+1)
			}
			key := strings.ToLower(strings.TrimSpace(a.Alias))
			if seen[key] {
				return nil, fmt.Errorf("company %q: duplicate alias %q", company, a.Alias)
			}
			seen[key] = true
		}
	}
	return &s, nil
}
