package playbook

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// libraryFile is the on-disk shape of a playbook library.
type libraryFile struct {
	Playbooks []Playbook `yaml:"playbooks"`
}

// ParseLibrary decodes a YAML playbook library and validates it.
func ParseLibrary(data []byte) ([]Playbook, error) {
	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing playbook library: %w", err)
	}
	for i, pb := range f.Playbooks {
		if err := validate(pb); err != nil {
			return nil, fmt.Errorf("playbook %d (%s): %w", i, pb.Name, err)
		}
	}
	return f.Playbooks, nil
}

// LoadLibrary reads and parses a YAML playbook library file.
//
// Example file:
//
//	playbooks:
//	  - name: office-core
//	    buildingType: office
//	    priority: HIGH
//	    preferred:
//	      - measureType: VFD_RETROFIT
//	        rationale: Offices with central air handling benefit first from drives.
//	    discouraged:
//	      - measureType: STEAM_OPTIMIZATION
//	        rationale: Steam plants are rare in this archetype.
func LoadLibrary(path string) ([]Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading playbook library: %w", err)
	}
	return ParseLibrary(data)
}

func validate(pb Playbook) error {
	if strings.TrimSpace(pb.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(pb.BuildingType) == "" {
		return fmt.Errorf("buildingType is required")
	}
	switch strings.ToUpper(pb.Priority) {
	case PriorityHigh, PriorityMed, PriorityLow:
	default:
		return fmt.Errorf("priority must be HIGH, MED, or LOW (got %q)", pb.Priority)
	}
	for _, rm := range append(append([]RankedMeasure{}, pb.Preferred...), pb.Discouraged...) {
		if strings.TrimSpace(rm.MeasureType) == "" {
			return fmt.Errorf("ranked measure with empty measureType")
		}
	}
	return nil
}
