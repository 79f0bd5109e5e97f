package site

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bastiangx/wikibot/internal/utils"
	"github.com/charmbracelet/log"
)

// LoadFile reads a TOML site definition and builds the Site.
//
//	name = "Example Wiki"
//	version = "1.39.4"
//	main_page = "Main Page"
//
//	[[namespace]]
//	id = 0
//	content = true
//
//	[[namespace]]
//	id = 1
//	canonical = "Talk"
//	name = "Talk"
//	subpages = true
//
//	[[interwiki]]
//	prefix = "en"
//	local_wiki = true
func LoadFile(path string) (*Site, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".toml" {
		return nil, fmt.Errorf("site definition %s has extension %q, expected .toml", path, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open site definition %s: %w", path, err)
	}
	defer file.Close()

	def, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	s, err := New(def)
	if err != nil {
		return nil, err
	}
	log.Debugf("Loaded site %q: %d namespaces, %d interwiki prefixes", s.Name, s.Namespaces.Len(), s.Interwiki.Len())
	return s, nil
}

// Decode reads a TOML site definition from r. Unknown keys are logged and
// skipped.
func Decode(r io.Reader) (Definition, error) {
	var def Definition
	md, err := toml.NewDecoder(r).Decode(&def)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to parse site definition: %w", err)
	}
	for _, key := range md.Undecoded() {
		log.Warnf("Ignoring unknown key %q in site definition", key.String())
	}
	return def, nil
}

// WriteFile saves a definition as TOML. An existing file is only replaced
// once the new one is fully written.
func WriteFile(def Definition, path string) error {
	if err := utils.SaveTOMLFile(def, path); err != nil {
		return fmt.Errorf("failed to write site definition %s: %w", path, err)
	}
	return nil
}
