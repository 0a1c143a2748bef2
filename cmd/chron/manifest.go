package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Manifest lists the tables to place under audit, read from
// chronicle.toml. Each entry may exclude columns from capture.
type Manifest struct {
	Tables map[string]ManifestTable `toml:"tables"`
}

// ManifestTable is one monitored table's capture settings.
type ManifestTable struct {
	Exclude []string `toml:"exclude,omitempty"`
}

func loadManifest(path string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, fmt.Errorf("manifest %s not found", path)
		}
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Tables == nil {
		m.Tables = map[string]ManifestTable{}
	}
	return m, nil
}
