package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/makehand/makehand/internal/makefile"
)

const previewMakefile = `## Category: Build
build: deps ## Compile the binary
	@echo build

deps: ## Fetch dependencies
	@echo deps

## Category: Release
deploy: build ## Ship to production
	@echo deploy

secret: ## @internal Rotate keys
	@echo secret
`

func writeTempMakefile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Makefile")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing makefile: %v", err)
	}
	return path
}

func parsePreview(t *testing.T, content string) *makefile.Catalog {
	t.Helper()
	cat, err := makefile.NewRegexParser(zerolog.Nop()).ParseFile(writeTempMakefile(t, content))
	if err != nil {
		t.Fatalf("parsing makefile: %v", err)
	}
	return cat
}

func clearMakehandEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MAKEHAND_MAKEFILE", "MAKEHAND_TIMEOUT", "MAKEHAND_MAX_OUTPUT_CHARS",
		"MAKEHAND_WRITE_OUTPUT", "MAKEHAND_OUTPUT_DIR", "MAKEHAND_LOG_LEVEL",
		"MAKEHAND_ALLOWED_TARGETS",
	} {
		t.Setenv(k, "")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestRenderPreview(t *testing.T) {
	cat := parsePreview(t, previewMakefile)
	out := renderPreview(cat)

	for _, want := range []string{
		"Makefile: " + cat.Source + "\n",
		"Total targets: 4\n",
		"Exposed as MCP tools: 3\n",
		"Internal (hidden): 1\n",
		"  Build\n",
		"  Release\n",
		"\n  build\n    Compile the binary (depends on: deps)\n",
		"\n  deps\n    Fetch dependencies\n",
		"  Internal Targets (NOT exposed)\n",
		"  secret - Rotate keys\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("preview missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "  Build\n") > strings.Index(out, "  Release\n") {
		t.Errorf("categories not sorted:\n%s", out)
	}
}

func TestRenderPreview_Uncategorized(t *testing.T) {
	cat := parsePreview(t, "setup: ## Install hooks\n\t@echo setup\n")
	out := renderPreview(cat)
	if !strings.Contains(out, "  Uncategorized\n") {
		t.Errorf("expected Uncategorized section:\n%s", out)
	}
}

func TestRenderPreview_NoExposed(t *testing.T) {
	cat := parsePreview(t, "build:\n\t@echo build\n")
	out := renderPreview(cat)
	if !strings.Contains(out, "No targets would be exposed as MCP tools.") {
		t.Errorf("expected empty notice:\n%s", out)
	}
	if !strings.Contains(out, "Add '## description' comments to your Makefile targets.") {
		t.Errorf("expected documentation hint:\n%s", out)
	}
	if strings.Contains(out, "=====") {
		t.Errorf("expected no category sections:\n%s", out)
	}
}

func TestPreviewJSON(t *testing.T) {
	cat := parsePreview(t, previewMakefile)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := printCatalogJSON(cmd, cat); err != nil {
		t.Fatalf("printCatalogJSON: %v", err)
	}

	var got struct {
		Makefile   string   `json:"makefile"`
		Categories []string `json:"categories"`
		Targets    []struct {
			Name     string `json:"name"`
			Internal bool   `json:"internal"`
		} `json:"targets"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshalling preview JSON: %v", err)
	}
	if got.Makefile != cat.Source {
		t.Errorf("makefile = %q, want %q", got.Makefile, cat.Source)
	}
	if !reflect.DeepEqual(got.Categories, []string{"Build", "Release"}) {
		t.Errorf("categories = %v", got.Categories)
	}
	var names []string
	for _, tgt := range got.Targets {
		names = append(names, tgt.Name)
	}
	if !reflect.DeepEqual(names, []string{"build", "deploy", "deps", "secret"}) {
		t.Errorf("target names = %v", names)
	}
}

func TestListOutput(t *testing.T) {
	path := writeTempMakefile(t, previewMakefile)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := runList(cmd, []string{path}); err != nil {
		t.Fatalf("runList: %v", err)
	}
	if got := buf.String(); got != "build\ndeploy\ndeps\n" {
		t.Errorf("list output = %q", got)
	}
}

func TestLoadServeConfig_MakefileArgument(t *testing.T) {
	clearMakehandEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "Makefile")
	if err := os.WriteFile(path, []byte("build: ## Build\n\t@echo hi\n"), 0o644); err != nil {
		t.Fatalf("writing makefile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".makehand"), []byte("timeout: 90s\nwrite_output: true\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	chdir(t, t.TempDir())

	cfg, got, err := loadServeConfig(serveCmd, []string{path})
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if got != path {
		t.Errorf("makefile path = %q, want %q", got, path)
	}
	if cfg.Timeout() != 90*time.Second {
		t.Errorf("timeout = %s, want 90s", cfg.Timeout())
	}
	if !cfg.WriteOutput {
		t.Error("expected write_output from the config next to the makefile")
	}
}

func TestLoadServeConfig_EnvOverridesFile(t *testing.T) {
	clearMakehandEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".makehand"), []byte("timeout: 90s\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	chdir(t, dir)
	t.Setenv("MAKEHAND_TIMEOUT", "120s")

	cfg, _, err := loadServeConfig(serveCmd, nil)
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if cfg.Timeout() != 120*time.Second {
		t.Errorf("timeout = %s, want 120s", cfg.Timeout())
	}
}

func TestLoadServeConfig_DefaultMakefilePath(t *testing.T) {
	clearMakehandEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".makehand"), []byte("makefile: sub/Makefile\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	chdir(t, dir)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	_, got, err := loadServeConfig(serveCmd, nil)
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if want := filepath.Join(cwd, "sub", "Makefile"); got != want {
		t.Errorf("makefile path = %q, want %q", got, want)
	}
}

// Flag state on serveCmd persists once set, so this test stays last.
func TestLoadServeConfig_FlagOverrides(t *testing.T) {
	clearMakehandEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".makehand"), []byte("timeout: 90s\nmax_output_chars: 100\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	chdir(t, dir)

	for flag, value := range map[string]string{
		"timeout":          "45s",
		"max-output-chars": "123",
		"write-output":     "true",
		"allowed-targets":  "build,test",
	} {
		if err := serveCmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("setting --%s: %v", flag, err)
		}
	}
	if err := rootCmd.PersistentFlags().Set("log-level", "debug"); err != nil {
		t.Fatalf("setting --log-level: %v", err)
	}

	cfg, _, err := loadServeConfig(serveCmd, nil)
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if cfg.Timeout() != 45*time.Second {
		t.Errorf("timeout = %s, want 45s", cfg.Timeout())
	}
	if cfg.MaxOutputChars() != 123 {
		t.Errorf("max output chars = %d, want 123", cfg.MaxOutputChars())
	}
	if !cfg.WriteOutput {
		t.Error("expected write-output flag to apply")
	}
	if !reflect.DeepEqual(cfg.AllowedTargets, []string{"build", "test"}) {
		t.Errorf("allowed targets = %v", cfg.AllowedTargets)
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel())
	}
}
