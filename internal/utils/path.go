package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

const appDirName = "wikibot"

// PathResolver finds the files wikibot reads and writes: the config file,
// site definitions and the worklist database.
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
	dataDir        string
}

// NewPathResolver creates a resolver anchored at the running binary.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := newPathResolver(execPath, homeDir)
	log.Debugf("PathResolver initialized: exec=%s, configDir=%s, dataDir=%s",
		pr.executablePath, pr.configDir, pr.dataDir)
	return pr, nil
}

func newPathResolver(execPath, homeDir string) *PathResolver {
	return &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      getConfigDir(homeDir),
		dataDir:        getDataDir(homeDir),
	}
}

func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", appDirName)
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, appDirName)
		}
		return filepath.Join(homeDir, ".config", appDirName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDirName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", appDirName)
	default:
		return filepath.Join(homeDir, "."+appDirName)
	}
}

func getDataDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, appDirName)
		}
		return filepath.Join(homeDir, ".local", "share", appDirName)
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appDirName)
		}
	}
	return getConfigDir(homeDir)
}

// GetSiteFile resolves a site definition. A bare name such as "enwiki" is
// looked up as enwiki.toml in the sites directory; other paths are tried as
// given, next to the working directory, and next to the binary.
func (pr *PathResolver) GetSiteFile(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("no site definition given")
	}
	for _, candidate := range pr.siteCandidates(name) {
		if stat, err := os.Stat(candidate); err == nil && !stat.IsDir() {
			log.Debugf("Found site definition: %s", candidate)
			return candidate, nil
		}
		log.Debugf("Site definition candidate not found: %s", candidate)
	}
	return "", fmt.Errorf("site definition %q: %w", name, os.ErrNotExist)
}

func (pr *PathResolver) siteCandidates(name string) []string {
	if filepath.IsAbs(name) {
		return []string{name}
	}
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, name))
	}
	candidates = append(candidates, filepath.Join(pr.executableDir, name))

	file := name
	if filepath.Ext(file) == "" {
		file += ".toml"
	}
	candidates = append(candidates,
		filepath.Join(pr.configDir, "sites", file),
		filepath.Join(pr.executableDir, "sites", file),
	)
	return candidates
}

// GetConfigPath returns the path for a config file, falling back to other
// writable directories when the config directory is read-only.
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	return pr.writablePath(pr.configDir, filename)
}

// GetDataPath returns the path for a data file such as the worklist
// database. Absolute names are returned unchanged.
func (pr *PathResolver) GetDataPath(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	return pr.writablePath(pr.dataDir, filename)
}

func (pr *PathResolver) writablePath(preferred, filename string) (string, error) {
	if CheckDirStatus(preferred).Writable {
		return filepath.Join(preferred, filename), nil
	}

	fallbacks := []string{
		filepath.Join(pr.homeDir, "."+appDirName),
		filepath.Join(os.TempDir(), appDirName),
		pr.executableDir,
	}
	for _, dir := range fallbacks {
		if CheckDirStatus(dir).Writable {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback location: %s", path)
			return path, nil
		}
	}
	return "", fmt.Errorf("no writable directory for %s", filename)
}

// GetConfigDir returns the config directory.
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetDataDir returns the data directory.
func (pr *PathResolver) GetDataDir() string {
	return pr.dataDir
}

// GetExecutableDir returns the directory holding the binary.
func (pr *PathResolver) GetExecutableDir() string {
	return pr.executableDir
}

// GetRuntimeInfo returns the resolved locations for debug output.
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	cwd, _ := os.Getwd()
	info := map[string]string{
		"executable_path": pr.executablePath,
		"current_dir":     cwd,
		"config_dir":      pr.configDir,
		"data_dir":        pr.dataDir,
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
	}
	for _, env := range []string{"HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME", "APPDATA"} {
		if value := os.Getenv(env); value != "" {
			info["env_"+strings.ToLower(env)] = value
		}
	}
	return info
}
