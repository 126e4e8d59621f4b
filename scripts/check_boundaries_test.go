package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepositoryHasNoBoundaryViolations(t *testing.T) {
	if violations := collectViolations(filepath.Join("..", "contexts")); len(violations) != 0 {
		t.Fatalf("unexpected boundary violations: %+v", violations)
	}
}

func TestDomainAdapterImportIsReported(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "governance", "voting-engine", "domain", "entities")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := "package entities\n\nimport _ \"sealedgov/contexts/governance/voting-engine/adapters/memory\"\n"
	if err := os.WriteFile(filepath.Join(dir, "bad.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	violations := collectViolations(root)
	if len(violations) == 0 {
		t.Fatalf("expected adapter import violation")
	}
	if violations[0].File != "contexts/governance/voting-engine/domain/entities/bad.go" {
		t.Fatalf("unexpected violation path %q", violations[0].File)
	}
}

func TestTransportRuntimeImportIsReported(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "governance", "voting-engine", "transport", "http")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := "package http\n\nimport _ \"sealedgov/internal/platform/config\"\n"
	if err := os.WriteFile(filepath.Join(dir, "dto.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	violations := collectViolations(root)
	if len(violations) != 2 {
		t.Fatalf("expected runtime and allowlist violations, got %+v", violations)
	}
	if violations[0].Rule != "transport DTOs must not import runtime infrastructure" {
		t.Fatalf("unexpected first rule %q", violations[0].Rule)
	}
}
