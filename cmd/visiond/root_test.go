package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := buildRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version {
		t.Fatalf("expected %q, got %q", version, got)
	}
}

func TestInferRequiresModel(t *testing.T) {
	root := buildRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"infer"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error when --model is missing")
	}
}

func TestLoadConfigAppliesEnvAndFlag(t *testing.T) {
	t.Setenv("VISIOND_SERVER_TAG", "b7777")
	cfg, err := loadConfig(&rootFlags{logLevel: "debug"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ServerTag != "b7777" {
		t.Fatalf("expected env tag, got %q", cfg.ServerTag)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected flag log level, got %q", cfg.LogLevel)
	}
}
