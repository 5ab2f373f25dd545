package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PricingFactorSeed is one TIER 1 standard factor loaded from the seed file
type PricingFactorSeed struct {
	Category string `yaml:"category"`
	Key      string `yaml:"key"`
	Factor   string `yaml:"factor"`
	Enabled  *bool  `yaml:"enabled,omitempty"`
}

// PricingSeed is the layout of PRICING_FACTORS_SEED_FILE:
//
//	factors:
//	  - category: material_kind
//	    key: oak
//	    factor: "1.3"
type PricingSeed struct {
	Factors []PricingFactorSeed `yaml:"factors"`
}

// LoadPricingSeed reads the TIER 1 seed file. An empty path yields an empty seed.
func LoadPricingSeed(path string) (*PricingSeed, error) {
	if path == "" {
		return &PricingSeed{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing seed %s: %w", path, err)
	}
	return ParsePricingSeed(data)
}

// ParsePricingSeed decodes a seed document and checks required keys
func ParsePricingSeed(data []byte) (*PricingSeed, error) {
	var seed PricingSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse pricing seed: %w", err)
	}
	for i, f := range seed.Factors {
		if f.Category == "" || f.Key == "" || f.Factor == "" {
			return nil, fmt.Errorf("pricing seed entry %d: category, key and factor are required", i)
		}
	}
	return &seed, nil
}
