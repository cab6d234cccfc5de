// Package platform describes the console variant being emulated and the
// memory-subsystem switches derived from it.
package platform

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config selects the console variant and the memory emulation switches.
type Config struct {
	// Wii enables the Wii memory map: expansion RAM is present and the
	// extended BAT pairs can be switched on via HID4.
	Wii bool `json:"wii"`

	// FullMMU enables exact translation-fault emulation. When false,
	// data-storage faults fall back to a diagnostic instead of a guest
	// exception, matching titles that never install a fault handler.
	FullMMU bool `json:"full_mmu"`

	// FakeVMEM maps two 256MiB windows onto one mirrored backing region
	// through the BAT tables. It is a compatibility approximation for
	// titles that expect paging while FullMMU is off, and is mutually
	// exclusive with FullMMU.
	FakeVMEM bool `json:"fake_vmem"`

	// MemChecks enables the watchpoint hook on completed accesses.
	MemChecks bool `json:"mem_checks"`
}

// DefaultGameCube returns the GameCube configuration.
func DefaultGameCube() *Config {
	return &Config{
		Wii:      false,
		FullMMU:  false,
		FakeVMEM: true,
	}
}

// DefaultWii returns the Wii configuration.
func DefaultWii() *Config {
	return &Config{
		Wii:      true,
		FullMMU:  false,
		FakeVMEM: false,
	}
}

// LoadConfig loads a Config from a JSON file, starting from the GameCube
// defaults so absent fields keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform config file: %w", err)
	}

	config := DefaultGameCube()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse platform config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize platform config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write platform config file: %w", err)
	}

	return nil
}

// Validate rejects switch combinations the memory subsystem cannot honor.
func (c *Config) Validate() error {
	if c.FullMMU && c.FakeVMEM {
		return fmt.Errorf("fake_vmem requires full_mmu to be off")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
