package battery

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of a hardware catalog.
type catalogFile struct {
	Items []LibraryItem `yaml:"items"`
}

// ParseCatalog decodes a YAML hardware catalog and validates identity
// fields. Rating validity is deliberately NOT checked here - invalid
// ratings are screening disqualifiers with explain strings, not load
// errors, so a bad catalog row still shows up (disqualified) in results.
func ParseCatalog(data []byte) ([]LibraryItem, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing battery catalog: %w", err)
	}
	for i, item := range f.Items {
		if strings.TrimSpace(item.Vendor) == "" || strings.TrimSpace(item.SKU) == "" {
			return nil, fmt.Errorf("catalog item %d: vendor and sku are required", i)
		}
	}
	return f.Items, nil
}

// LoadCatalog reads and parses a YAML hardware catalog file.
//
// Example file:
//
//	items:
//	  - vendor: Powin
//	    sku: STACK-230
//	    chemistry: LFP
//	    ratedPowerKw: 115
//	    ratedEnergyKwh: 230
//	    roundTripEfficiency: 0.88
//	    minSoc: 0.1
//	    maxSoc: 0.95
//	    maxCRate: 0.5
func LoadCatalog(path string) ([]LibraryItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading battery catalog: %w", err)
	}
	return ParseCatalog(data)
}
