// Copyright (C) 2017 ScyllaDB

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestParseConfigFilesOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "config.yaml")
	data := []byte(`
http: 127.0.0.1:6080
database:
  hosts:
    - 10.0.0.1
    - 10.0.0.2
repair:
  full:
    enabled: true
    threads: 4
`)
	if err := os.WriteFile(f, data, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := ParseConfigFiles([]string{f})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	if c.HTTP != "127.0.0.1:6080" {
		t.Fatalf("http not overridden: %s", c.HTTP)
	}
	if len(c.Database.Hosts) != 2 {
		t.Fatalf("database hosts not overridden: %v", c.Database.Hosts)
	}
	if !c.Repair.Full.Enabled || c.Repair.Full.Threads != 4 {
		t.Fatalf("repair options not overridden: %+v", c.Repair.Full)
	}
	// untouched defaults survive the merge
	if c.Prometheus != ":5090" {
		t.Fatalf("prometheus default lost: %s", c.Prometheus)
	}
}

func TestParseConfigFilesMissingFileIsSkipped(t *testing.T) {
	c, err := ParseConfigFiles([]string{"/nonexistent/config.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}
