package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apresai/podcraft/internal/config"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m tuiModel, keys ...string) tuiModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(tuiModel)
	}
	return m
}

func TestWizardRequiresInput(t *testing.T) {
	flagFiles, flagURL = nil, ""
	m := initialTUIModel()
	m.cursor = idxGenerate
	m = press(m, "enter")
	if m.confirmed || m.err == nil {
		t.Errorf("confirmed = %v, err = %v", m.confirmed, m.err)
	}
}

func TestWizardFlow(t *testing.T) {
	flagFiles, flagURL, flagQuestion = nil, "", ""
	flagTone, flagLength, flagLanguage = "fun", "medium", "中文"

	m := initialTUIModel()
	// Files: type two paths.
	m = press(m, "enter", "a.pdf,", "space", "b.md", "enter")
	if m.cursor != idxURL {
		t.Fatalf("cursor = %d after files", m.cursor)
	}
	// Skip URL and question.
	m = press(m, "down", "down")
	// Tone: pick formal.
	m = press(m, "enter", "down", "enter")
	if got := m.items[idxTone].value; got != "formal" {
		t.Errorf("tone = %q", got)
	}

	m.cursor = idxGenerate
	m = press(m, "enter")
	if !m.confirmed {
		t.Fatalf("not confirmed, err = %v", m.err)
	}

	m.apply()
	if len(flagFiles) != 2 || flagFiles[0] != "a.pdf" || flagFiles[1] != "b.md" {
		t.Errorf("files = %q", flagFiles)
	}
	if flagTone != "formal" || flagLength != "medium" {
		t.Errorf("tone = %q, length = %q", flagTone, flagLength)
	}
}

func TestWizardQuit(t *testing.T) {
	m := press(initialTUIModel(), "q")
	if !m.cancelled {
		t.Error("q did not cancel")
	}
}

func TestWizardViewShowsOptions(t *testing.T) {
	m := initialTUIModel()
	m.cursor = idxLength
	m = press(m, "enter")
	view := m.View()
	if !strings.Contains(view, "Long (15-20 min)") {
		t.Errorf("view missing length options:\n%s", view)
	}
}

func TestPrintProviders(t *testing.T) {
	var buf bytes.Buffer
	pc := config.ProvidersConfig{
		Default: "baidu",
		Platforms: map[string]config.Platform{
			"baidu": {AppID: "1", APIKey: "k", SecretKey: "s"},
		},
	}
	printProviders(&buf, "Speech", []string{"baidu", "xunfei"}, pc)
	out := buf.String()
	if !strings.Contains(out, "* ") || !strings.Contains(out, "ready") || !strings.Contains(out, "not configured") {
		t.Errorf("output:\n%s", out)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp3")
	os.WriteFile(src, []byte("mp3"), 0o644)
	dst := filepath.Join(dir, "out", "b.mp3")
	if err := copyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(dst); string(data) != "mp3" {
		t.Errorf("copied = %q", data)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := Execute(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "podcraft ") {
		t.Errorf("out = %q", out)
	}
}

func TestCleanAll(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "cache")
	os.MkdirAll(filepath.Join(cache, "old_01"), 0o755)

	cfgFile := filepath.Join(dir, "podcraft.yaml")
	os.WriteFile(cfgFile, []byte("pipeline:\n  cache_dir: "+cache+"\n"), 0o644)

	out, err := run(t, "clean", "--all", "--config", cfgFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Emptied") {
		t.Errorf("out = %q", out)
	}
	entries, _ := os.ReadDir(cache)
	if len(entries) != 0 {
		t.Errorf("cache not emptied: %v", entries)
	}
}

func TestGenerateRejectsConflictingFlags(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "podcraft.yaml")
	os.WriteFile(cfgFile, []byte("logging:\n  level: info\n"), 0o644)

	_, err := run(t, "generate", "--config", cfgFile, "--from-script", "s.json", "--url", "https://example.com")
	if err == nil || !strings.Contains(err.Error(), "--from-script") {
		t.Errorf("err = %v", err)
	}
	flagFromScript, flagURL = "", ""
}
