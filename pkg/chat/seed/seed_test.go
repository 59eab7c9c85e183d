package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parleyhq/parley/pkg/chat"
)

func writeSeed(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromDir_MixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "models.yaml", `
models:
  - id: local-llama
    name: llama3
    provider: local-llama-server
    base_url: http://localhost:11434/api
`)
	writeSeed(t, dir, "personas.json", `{
  "personas": [
    {"id": "ada", "name": "Ada", "model_id": "local-llama", "system_prompt": "be brief"}
  ]
}`)
	writeSeed(t, dir, "notes.txt", "ignored")

	orch := chat.NewOrchestrator()
	ids, err := LoadFromDir(dir, orch)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("registered ids = %v, want 2 entries", ids)
	}

	m, ok := orch.Model("local-llama")
	if !ok {
		t.Fatal("model local-llama not registered")
	}
	if m.BaseURL != "http://localhost:11434/api" {
		t.Errorf("BaseURL = %q", m.BaseURL)
	}
	p, ok := orch.Persona("ada")
	if !ok {
		t.Fatal("persona ada not registered")
	}
	if p.SystemPrompt != "be brief" {
		t.Errorf("SystemPrompt = %q", p.SystemPrompt)
	}
}

func TestLoadFromDir_CredentialEnvExpansion(t *testing.T) {
	t.Setenv("SEED_TEST_KEY", "sk-from-env")

	dir := t.TempDir()
	writeSeed(t, dir, "models.yaml", `
models:
  - id: cloud
    name: gpt-4
    provider: cloud-chat
    credential: $SEED_TEST_KEY
`)

	orch := chat.NewOrchestrator()
	if _, err := LoadFromDir(dir, orch); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	m, ok := orch.Model("cloud")
	if !ok {
		t.Fatal("model cloud not registered")
	}
	if m.Credential != "sk-from-env" {
		t.Errorf("Credential = %q, want expanded env value", m.Credential)
	}
}

func TestLoadFromDir_SkipsCloudModelWithoutCredential(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "models.yaml", `
models:
  - id: cloud
    name: gpt-4
    provider: cloud-chat
    credential: $SEED_TEST_UNSET_VAR
  - id: mock
    name: mock
    provider: mock
`)

	orch := chat.NewOrchestrator()
	ids, err := LoadFromDir(dir, orch)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if _, ok := orch.Model("cloud"); ok {
		t.Error("cloud model without credential should be skipped")
	}
	if _, ok := orch.Model("mock"); !ok {
		t.Error("mock model needs no credential and should be registered")
	}
	if len(ids) != 1 || ids[0] != "mock" {
		t.Errorf("ids = %v, want [mock]", ids)
	}
}

func TestLoadFromDir_SkipsEntriesWithoutID(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "bad.yaml", `
models:
  - name: nameless
    provider: mock
personas:
  - name: ghost
`)

	orch := chat.NewOrchestrator()
	ids, err := LoadFromDir(dir, orch)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids)
	}
}

func TestLoadFromDir_ParseErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "broken.json", `{not valid`)

	orch := chat.NewOrchestrator()
	if _, err := LoadFromDir(dir, orch); err == nil {
		t.Fatal("LoadFromDir should fail on an unparseable file")
	}
}
