package utils

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func TestTOMLRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[server]\nmax_batch = 12\nname = \"x\"\n[cli]\nnatural_sort = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	raw, err := ParseTOMLWithRecovery(path)
	if err != nil {
		t.Fatalf("ParseTOMLWithRecovery: %v", err)
	}
	server, ok := ExtractSection(raw, "server")
	if !ok {
		t.Fatal("missing [server]")
	}
	if v, ok := ExtractInt64(server, "max_batch"); !ok || v != 12 {
		t.Errorf("max_batch = %d, %v", v, ok)
	}
	if v, ok := ExtractString(server, "name"); !ok || v != "x" {
		t.Errorf("name = %q, %v", v, ok)
	}
	if _, ok := ExtractInt64(server, "name"); ok {
		t.Error("a string must not read as an integer")
	}
	cli, _ := ExtractSection(raw, "cli")
	if v, ok := ExtractBool(cli, "natural_sort"); !ok || !v {
		t.Errorf("natural_sort = %v, %v", v, ok)
	}
	if _, ok := ExtractSection(raw, "missing"); ok {
		t.Error("unexpected section")
	}
}

func TestLoadTOMLFileReportsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	if err := os.WriteFile(path, []byte("a = 1\nb = 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var v struct {
		A int `toml:"a"`
	}
	unknown, err := LoadTOMLFile(path, &v)
	if err != nil {
		t.Fatal(err)
	}
	if v.A != 1 || len(unknown) != 1 || unknown[0] != "b" {
		t.Errorf("got %+v, unknown %v", v, unknown)
	}

	if err := os.WriteFile(path, []byte("a = = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTOMLFile(path, &v); err == nil {
		t.Error("expected a parse error")
	}
}

func TestSaveTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	in := struct {
		Name string `toml:"name"`
	}{"wiki"}
	if err := SaveTOMLFile(in, path); err != nil {
		t.Fatalf("SaveTOMLFile: %v", err)
	}
	if !FileExists(path) {
		t.Fatal("file not written")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestCheckDirStatus(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	result := CheckDirStatus(dir)
	if !result.Exists || !result.Writable || result.Error != nil {
		t.Errorf("CheckDirStatus = %+v", result)
	}
	if GetAbsolutePath("") != "unknown" {
		t.Error("empty path should be unknown")
	}
	if !filepath.IsAbs(GetAbsolutePath("x.toml")) {
		t.Error("expected an absolute path")
	}
}

func TestPathResolver(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is linux only")
	}
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	pr := newPathResolver(filepath.Join(root, "bin", "wikibot"), root)

	if got := pr.GetConfigDir(); got != filepath.Join(root, "config", "wikibot") {
		t.Errorf("config dir = %s", got)
	}
	dbPath, err := pr.GetDataPath("worklists.db")
	if err != nil || dbPath != filepath.Join(root, "data", "wikibot", "worklists.db") {
		t.Errorf("GetDataPath = %s, %v", dbPath, err)
	}
	if abs, _ := pr.GetDataPath("/srv/w.db"); abs != "/srv/w.db" {
		t.Errorf("absolute data path rewritten to %s", abs)
	}

	sites := filepath.Join(pr.GetConfigDir(), "sites")
	if err := EnsureDir(sites); err != nil {
		t.Fatal(err)
	}
	sitePath := filepath.Join(sites, "enwiki.toml")
	if err := os.WriteFile(sitePath, []byte("name = \"enwiki\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, err := pr.GetSiteFile("enwiki"); err != nil || got != sitePath {
		t.Errorf("GetSiteFile(enwiki) = %s, %v", got, err)
	}
	if _, err := pr.GetSiteFile("nowiki"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("GetSiteFile(nowiki) error = %v", err)
	}
	if _, err := pr.GetSiteFile(""); err == nil {
		t.Error("expected an error for an empty name")
	}

	if got := pr.GetDataDir(); got != filepath.Join(root, "data", "wikibot") {
		t.Errorf("data dir = %s", got)
	}
	info := pr.GetRuntimeInfo()
	if info["data_dir"] != pr.GetDataDir() || info["config_dir"] != pr.GetConfigDir() {
		t.Errorf("runtime info dirs = %v", info)
	}
	if info["executable_path"] != filepath.Join(root, "bin", "wikibot") || info["os"] != runtime.GOOS {
		t.Errorf("runtime info = %v", info)
	}
	if info["env_xdg_data_home"] != filepath.Join(root, "data") {
		t.Errorf("env_xdg_data_home = %q", info["env_xdg_data_home"])
	}
}
