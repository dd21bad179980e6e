package policy

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/programs.yaml
var programsYAML embed.FS

// ProgramConfig is one relief fund's policy as configured.
type ProgramConfig struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	SingleRequestMax float64  `yaml:"single_request_max"`
	EventWindowDays  int      `yaml:"event_window_days,omitempty"` // Default: 90
	TwelveMonthCap   float64  `yaml:"twelve_month_cap"`
	LifetimeCap      float64  `yaml:"lifetime_cap"`
	EligibleEvents   []string `yaml:"eligible_events"`
}

// ProgramRegistry holds every configured relief program.
type ProgramRegistry struct {
	Programs []ProgramConfig `yaml:"programs"`
}

// LoadPrograms reads the embedded programs.yaml. The path parameter is a
// filesystem fallback for local development overrides.
func LoadPrograms(path string) (*ProgramRegistry, error) {
	data, err := programsYAML.ReadFile("config/programs.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	var registry ProgramRegistry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, err
	}

	for i := range registry.Programs {
		if registry.Programs[i].EventWindowDays <= 0 {
			registry.Programs[i].EventWindowDays = defaultEventWindowDays
		}
	}

	return &registry, nil
}

// Get returns the program with the given ID.
func (r *ProgramRegistry) Get(id string) (ProgramConfig, error) {
	for _, program := range r.Programs {
		if program.ID == id {
			return program, nil
		}
	}
	return ProgramConfig{}, fmt.Errorf("unknown program: %s", id)
}

// Policy converts the config into the engine's policy input.
func (c ProgramConfig) Policy() ProgramPolicy {
	return ProgramPolicy{
		SingleRequestMax: c.SingleRequestMax,
		EventWindowDays:  c.EventWindowDays,
		EligibleEvents:   c.EligibleEvents,
	}
}
