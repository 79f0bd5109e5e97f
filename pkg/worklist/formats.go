// Package worklist saves and loads the title lists bots work through, as
// files or in a SQLite store.
package worklist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bastiangx/wikibot/pkg/collection"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// FileFormat represents the worklist file formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatText               // one title per line
	FormatMsgpack            // msgpack document of wire titles
)

// FormatInfo contains metadata about a worklist file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Worklist",
		Extensions:  []string{".txt", ".lst"},
	},
	FormatMsgpack: {
		Format:      FormatMsgpack,
		Description: "MessagePack Worklist",
		Extensions:  []string{".msgpack", ".mpk"},
	},
}

// document is the msgpack layout of a worklist file.
type document struct {
	Site   string       `msgpack:"site"`
	Titles []title.Wire `msgpack:"titles"`
}

// DetectFormat picks a format from the file extension.
func DetectFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for format, info := range supportedFormats {
		if slices.Contains(info.Extensions, ext) {
			return format, nil
		}
	}
	var known []string
	for _, info := range ListSupportedFormats() {
		known = append(known, info.Extensions...)
	}
	return FormatUnknown, fmt.Errorf("unable to detect worklist format for file %s (supported: %s)", filename, strings.Join(known, ", "))
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ListSupportedFormats returns all supported formats
func ListSupportedFormats() []FormatInfo {
	formats := make([]FormatInfo, 0, len(supportedFormats))
	for _, info := range supportedFormats {
		formats = append(formats, info)
	}
	slices.SortFunc(formats, func(a, b FormatInfo) int { return int(a.Format - b.Format) })
	return formats
}

// ReadFile loads a worklist for s. Text lines are parsed with defaultNS as
// the namespace for unprefixed titles.
func ReadFile(path string, s *site.Site, defaultNS int) (*collection.Collection[title.Title], error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open worklist %s: %w", path, err)
	}
	defer file.Close()

	var c *collection.Collection[title.Title]
	switch format {
	case FormatText:
		c, err = ReadText(file, s, defaultNS)
	case FormatMsgpack:
		c, err = ReadMsgpack(file, s)
	}
	if err != nil {
		return nil, fmt.Errorf("worklist %s: %w", path, err)
	}
	info, _ := GetFormatInfo(format)
	log.Debugf("Loaded %d titles from %s (%s)", c.Len(), path, info.Description)
	return c, nil
}

// WriteFile saves c in the format implied by the extension of path.
func WriteFile(path string, c *collection.Collection[title.Title]) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create worklist %s: %w", path, err)
	}

	switch format {
	case FormatText:
		err = WriteText(file, c)
	case FormatMsgpack:
		err = WriteMsgpack(file, c)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("worklist %s: %w", path, err)
	}
	info, _ := GetFormatInfo(format)
	log.Debugf("Wrote %d titles to %s (%s)", c.Len(), path, info.Description)
	return nil
}

// ReadText parses one title per line. Blank lines and lines starting with
// '#' are skipped, as are links to foreign wikis, which cannot be worked
// on here.
func ReadText(r io.Reader, s *site.Site, defaultNS int) (*collection.Collection[title.Title], error) {
	c := collection.New[title.Title](s)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lt, err := title.Parse(s, defaultNS, line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !lt.IsLocal() {
			log.Warnf("Skipping line %d: %q links to another wiki", lineNo, line)
			continue
		}
		c.Add(lt.Title)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}
	return c, nil
}

// WriteText writes one full page name per line.
func WriteText(w io.Writer, c *collection.Collection[title.Title]) error {
	bw := bufio.NewWriter(w)
	for _, t := range c.All() {
		if _, err := fmt.Fprintln(bw, t.FullPageName()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadMsgpack decodes a document written by WriteMsgpack.
func ReadMsgpack(r io.Reader, s *site.Site) (*collection.Collection[title.Title], error) {
	var doc document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode worklist: %w", err)
	}
	if doc.Site != "" && doc.Site != s.Name {
		log.Warnf("Worklist was saved for site %q, loading it for %q", doc.Site, s.Name)
	}
	c := collection.New[title.Title](s)
	for i, w := range doc.Titles {
		ft, err := title.FromWire(s, w)
		if err != nil {
			return nil, fmt.Errorf("title %d: %w", i, err)
		}
		if !ft.IsLocal() {
			log.Warnf("Skipping title %d: %q links to another wiki", i, ft.String())
			continue
		}
		c.Add(ft.Title)
	}
	return c, nil
}

// WriteMsgpack encodes c with its site name.
func WriteMsgpack(w io.Writer, c *collection.Collection[title.Title]) error {
	doc := document{Site: c.Site().Name, Titles: make([]title.Wire, 0, c.Len())}
	for _, t := range c.All() {
		doc.Titles = append(doc.Titles, title.ToWire(t))
	}
	if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode worklist: %w", err)
	}
	return nil
}
