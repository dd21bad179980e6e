package policy

import (
	"testing"
)

func TestLoadPrograms_EmbeddedConfig(t *testing.T) {
	registry, err := LoadPrograms("")
	if err != nil {
		t.Fatalf("failed to load embedded programs: %v", err)
	}
	if len(registry.Programs) == 0 {
		t.Fatal("expected at least one configured program")
	}

	program, err := registry.Get("disaster-relief")
	if err != nil {
		t.Fatalf("expected disaster-relief program: %v", err)
	}
	if program.SingleRequestMax <= 0 {
		t.Fatal("expected a positive single-request max")
	}
	if len(program.EligibleEvents) == 0 {
		t.Fatal("expected eligible events")
	}
	if program.EventWindowDays != 90 {
		t.Fatalf("expected 90-day window, got %d", program.EventWindowDays)
	}
}

func TestLoadPrograms_DefaultsEventWindow(t *testing.T) {
	registry, err := LoadPrograms("")
	if err != nil {
		t.Fatal(err)
	}

	// hardship-relief omits event_window_days in config.
	program, err := registry.Get("hardship-relief")
	if err != nil {
		t.Fatal(err)
	}
	if program.EventWindowDays != defaultEventWindowDays {
		t.Fatalf("expected default window %d, got %d", defaultEventWindowDays, program.EventWindowDays)
	}
}

func TestProgramRegistry_GetUnknown(t *testing.T) {
	registry := &ProgramRegistry{}
	if _, err := registry.Get("nope"); err == nil {
		t.Fatal("expected error for unknown program")
	}
}
