// Package cli handles cmd line input for parsing and inspecting titles interactively
package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/wikibot/pkg/collection"
	"github.com/bastiangx/wikibot/pkg/config"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/bastiangx/wikibot/pkg/worklist"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	problemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// InputHandler reads link texts from stdin, prints how each one parses and
// keeps the valid local titles in a session list.
type InputHandler struct {
	parser       *title.Parser
	defaultNS    int
	opts         config.CliConfig
	session      *collection.Collection[title.Title]
	reader       *bufio.Reader
	out          *log.Logger
	requestCount int
}

// NewInputHandler creates a handler on stdin and stderr.
func NewInputHandler(parser *title.Parser, defaultNS int, opts config.CliConfig) *InputHandler {
	return NewInputHandlerWithIO(parser, defaultNS, opts, os.Stdin, os.Stderr)
}

// NewInputHandlerWithIO creates a handler reading r and printing to w.
func NewInputHandlerWithIO(parser *title.Parser, defaultNS int, opts config.CliConfig, r io.Reader, w io.Writer) *InputHandler {
	return &InputHandler{
		parser:    parser,
		defaultNS: defaultNS,
		opts:      opts,
		session:   collection.New[title.Title](parser.Site()),
		reader:    bufio.NewReader(r),
		out: log.NewWithOptions(w, log.Options{
			ReportTimestamp: false,
			Level:           log.GetLevel(),
		}),
	}
}

// Session returns the titles collected so far.
func (h *InputHandler) Session() *collection.Collection[title.Title] {
	return h.session
}

// Start runs the input loop until stdin is closed.
func (h *InputHandler) Start() error {
	h.out.Print("wikibot CLI [BETA]")
	h.out.Printf("site: %s, default namespace: %d. Type a title, or /help:", h.parser.Site().Name, h.defaultNS)

	for {
		line, err := h.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			h.handleInput(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debugf("Input closed after %d lines", h.requestCount)
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleInput(line string) {
	h.requestCount++
	if strings.HasPrefix(line, "/") {
		cmd, arg, _ := strings.Cut(line, " ")
		h.handleCommand(cmd, strings.TrimSpace(arg))
		return
	}

	start := time.Now()
	lt, err := h.parser.Parse(h.defaultNS, line)
	if err != nil {
		h.out.Errorf("Cannot parse %q: %v", line, err)
		return
	}
	log.Debugf("Took [ %v ] for %q", time.Since(start), line)

	h.printTitle(lt)

	problem := title.Validate(lt, title.ValidityOptions{AllowRelative: h.opts.AllowRelative})
	if problem != title.ProblemNone {
		h.out.Print("  invalid: " + problemStyle.Render(problem.String()))
		return
	}
	if lt.IsLocal() && lt.PageName() != "" {
		h.session.Add(lt.Title)
	}
}

func (h *InputHandler) printTitle(lt *title.LinkTitle) {
	h.out.Print(titleStyle.Render(lt.LinkText()))
	ns := lt.Namespace()
	h.out.Printf("  namespace: %d (%s)", ns.ID, nsLabel(ns))
	h.out.Printf("  page name: %s", lt.PageName())
	if iw := lt.Interwiki(); iw != nil {
		scope := "foreign"
		if iw.LocalWiki {
			scope = "local"
		}
		if lt.IsBareInterwiki() {
			scope += ", bare"
		}
		h.out.Printf("  interwiki: %s (%s)", iw.Prefix, scope)
	}
	if lt.HasFragment() {
		h.out.Printf("  fragment:  %s", lt.Fragment())
	}

	var flags []string
	if lt.Coerced {
		flags = append(flags, "coerced")
	}
	if lt.ForcedNamespaceLink {
		flags = append(flags, "forced-namespace")
	}
	if lt.ForcedInterwikiLink {
		flags = append(flags, "forced-interwiki")
	}
	if len(flags) > 0 {
		h.out.Printf("  flags:     %s", strings.Join(flags, ", "))
	}
	if talk, ok := lt.TalkPage(); ok && lt.IsLocal() && !ns.IsTalkSpace() {
		h.out.Printf("  talk page: %s", talk.FullPageName())
	}
	if h.opts.ShowOriginal {
		h.out.Printf("  original:  %q", lt.OriginalText())
	}
}

func (h *InputHandler) handleCommand(cmd, arg string) {
	switch cmd {
	case "/help":
		h.out.Print("/ns <id|name>      set the default namespace")
		h.out.Print("/complete <prefix> list namespace names and interwiki prefixes")
		h.out.Print("/list              show the session titles in order")
		h.out.Print("/save <file>       write the session to a .txt or .msgpack worklist")
		h.out.Print("/clear             empty the session")
		h.out.Print("/iw                list the interwiki prefixes")
		h.out.Print("/cache <size>      resize the parse cache")
	case "/ns":
		ns, ok := h.lookupNamespace(arg)
		if !ok {
			h.out.Errorf("Unknown namespace: %q", arg)
			return
		}
		h.defaultNS = ns.ID
		h.out.Printf("default namespace: %d (%s)", ns.ID, nsLabel(ns))
	case "/complete":
		s := h.parser.Site()
		names := append(s.Namespaces.NamesWithPrefix(arg), s.Interwiki.PrefixesStartingWith(arg)...)
		if len(names) == 0 {
			h.out.Warnf("Nothing starts with %q", arg)
			return
		}
		for _, name := range names {
			h.out.Print("  " + name)
		}
	case "/list":
		if h.opts.NaturalSort {
			h.session.SortNatural()
		} else {
			h.session.Sort()
		}
		h.out.Printf("%d titles:", h.session.Len())
		for i, t := range h.session.All() {
			h.out.Printf("%3d. %s", i+1, t.FullPageName())
		}
	case "/save":
		if arg == "" {
			h.out.Error("Usage: /save <file>")
			return
		}
		if err := worklist.WriteFile(arg, h.session); err != nil {
			h.out.Errorf("Saving %s: %v", arg, err)
			return
		}
		h.out.Printf("saved %d titles to %s", h.session.Len(), arg)
	case "/clear":
		h.session.Clear()
		h.out.Print("session cleared")
	case "/iw":
		entries := h.parser.Site().Interwiki.Entries()
		if len(entries) == 0 {
			h.out.Warn("No interwiki prefixes defined")
			return
		}
		for _, iw := range entries {
			if iw.LocalWiki {
				h.out.Printf("  %-12s local", iw.Prefix)
				continue
			}
			h.out.Printf("  %-12s %s", iw.Prefix, iw.URL)
		}
	case "/cache":
		size, err := strconv.Atoi(arg)
		if err != nil {
			h.out.Error("Usage: /cache <size>")
			return
		}
		if err := h.parser.ResizeCache(size); err != nil {
			h.out.Errorf("Resizing cache: %v", err)
			return
		}
		h.out.Printf("parse cache: %v", h.parser.Stats())
	default:
		h.out.Errorf("Unknown command: %s (try /help)", cmd)
	}
}

func (h *InputHandler) lookupNamespace(arg string) (*site.Namespace, bool) {
	s := h.parser.Site()
	if id, err := strconv.Atoi(arg); err == nil {
		ns := s.Namespace(id)
		return ns, ns != nil
	}
	if arg == "" {
		return nil, false
	}
	return s.Namespaces.Lookup(arg)
}

func nsLabel(ns *site.Namespace) string {
	if ns.Name == "" {
		return "Main"
	}
	return ns.Name
}
