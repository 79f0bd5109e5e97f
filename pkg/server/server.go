package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bastiangx/wikibot/internal/logger"
	"github.com/bastiangx/wikibot/pkg/collection"
	"github.com/bastiangx/wikibot/pkg/config"
	"github.com/bastiangx/wikibot/pkg/jobs"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the IPC for title requests
type Server struct {
	parser   *title.Parser
	registry *jobs.Registry
	config   *config.Config
	decoder  *msgpack.Decoder
	encoder  *msgpack.Encoder
	logger   *log.Logger
	requests int
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(parser *title.Parser, registry *jobs.Registry, cfg *config.Config) *Server {
	return NewServerWithIO(parser, registry, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server reading requests from r and writing
// responses to w.
func NewServerWithIO(parser *title.Parser, registry *jobs.Registry, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return &Server{
		parser:   parser,
		registry: registry,
		config:   cfg,
		decoder:  msgpack.NewDecoder(r),
		encoder:  enc,
		logger:   logger.New("server"),
	}
}

// Start sends the ready message and serves requests until the input ends.
func (s *Server) Start() error {
	s.logger.Debug("Starting Server.", "site", s.parser.Site().Name)

	s.sendResponse(StatusResponse{Status: "ready"})

	for {
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debugf("Input closed after %d requests", s.requests)
				return nil
			}
			// The stream cannot be resynchronised after a framing error.
			s.logger.Errorf("Reading request: %v", err)
			s.sendError("", "Malformed msgpack stream", 400)
			return err
		}
		s.handleRequest(raw)
	}
}

// handleRequest decodes one message and dispatches on its action.
func (s *Server) handleRequest(raw msgpack.RawMessage) {
	var request Request
	if err := msgpack.Unmarshal(raw, &request); err != nil {
		s.sendError("", "Invalid msgpack request", 400)
		s.logger.Errorf("Unmarshaling request: %v", err)
		return
	}
	s.requests++

	switch request.Action {
	case "parse":
		s.handleParse(request, false)
	case "validate":
		s.handleParse(request, true)
	case "sort":
		s.handleSort(request)
	case "run":
		s.handleRun(request)
	case "complete":
		s.handleComplete(request)
	case "health":
		s.sendResponse(Response{ID: request.ID, Status: "ok", Stats: s.parser.Stats(), Count: s.requests})
	default:
		s.sendError(request.ID, fmt.Sprintf("Unknown action: %s", request.Action), 400)
	}
}

// sendResponse encodes response onto the output stream.
func (s *Server) sendResponse(response any) {
	if err := s.encoder.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}

// checkBatch rejects empty and oversized batches. It reports whether the
// request may proceed.
func (s *Server) checkBatch(request Request) bool {
	if len(request.Titles) == 0 {
		s.sendError(request.ID, "Missing 'titles' parameter", 400)
		return false
	}
	if limit := s.config.Server.MaxBatch; limit > 0 && len(request.Titles) > limit {
		s.sendError(request.ID, fmt.Sprintf("Batch of %d titles exceeds maximum of %d", len(request.Titles), limit), 413)
		return false
	}
	if s.parser.Site().Namespace(request.Namespace) == nil {
		s.sendError(request.ID, fmt.Sprintf("Unknown namespace: %d", request.Namespace), 400)
		return false
	}
	return true
}

// parseAll parses every text of the request for use in a collection. Texts
// that fail to parse, and titles on foreign wikis, are returned as entries
// carrying the error.
func (s *Server) parseAll(request Request) ([]*title.LinkTitle, []ParsedTitle) {
	var parsed []*title.LinkTitle
	var failed []ParsedTitle
	for _, text := range request.Titles {
		lt, err := s.parser.Parse(request.Namespace, text)
		if err != nil {
			s.logger.Debugf("Cannot parse %q: %v", text, err)
			failed = append(failed, ParsedTitle{Text: text, Error: err.Error()})
			continue
		}
		if !lt.IsLocal() {
			pt := toParsed(lt)
			pt.Error = fmt.Sprintf("%s is on another wiki", lt.String())
			failed = append(failed, pt)
			continue
		}
		parsed = append(parsed, lt)
	}
	return parsed, failed
}

func (s *Server) handleParse(request Request, validate bool) {
	if !s.checkBatch(request) {
		return
	}

	start := time.Now()
	opts := title.ValidityOptions{AllowRelative: request.AllowRelative}
	results := make([]ParsedTitle, 0, len(request.Titles))
	invalid := 0
	for _, text := range request.Titles {
		lt, err := s.parser.Parse(request.Namespace, text)
		if err != nil {
			results = append(results, ParsedTitle{Text: text, Error: err.Error()})
			invalid++
			continue
		}
		pt := toParsed(lt)
		if validate {
			problem := title.Validate(lt, opts)
			ok := problem == title.ProblemNone
			pt.Valid = &ok
			if !ok {
				pt.Problem = problem.String()
				invalid++
			}
		}
		results = append(results, pt)
	}

	count := len(results)
	if validate {
		count = invalid
	}
	s.sendResponse(Response{
		ID:        request.ID,
		Status:    "ok",
		Titles:    results,
		Count:     count,
		TimeTaken: time.Since(start).Microseconds(),
	})
}

// handleSort parses the batch into a collection, which drops duplicate
// titles keeping the last occurrence, and returns it ordered.
func (s *Server) handleSort(request Request) {
	if !s.checkBatch(request) {
		return
	}

	start := time.Now()
	parsed, failed := s.parseAll(request)
	c := collection.From(s.parser.Site(), parsed...)
	if request.Natural {
		c.SortNatural()
	} else {
		c.Sort()
	}

	results := make([]ParsedTitle, 0, c.Len()+len(failed))
	for _, lt := range c.All() {
		results = append(results, toParsed(lt))
	}
	if request.Reverse {
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	}
	s.sendResponse(Response{
		ID:        request.ID,
		Status:    "ok",
		Titles:    append(results, failed...),
		Count:     c.Len(),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleRun(request Request) {
	if request.Job == "" {
		s.sendError(request.ID, "Missing 'job' parameter", 400)
		return
	}
	if _, ok := s.registry.Lookup(request.Job); !ok {
		s.sendError(request.ID, fmt.Sprintf("Unknown job: %s", request.Job), 404)
		return
	}
	if !s.checkBatch(request) {
		return
	}

	start := time.Now()
	parsed, failed := s.parseAll(request)
	in := collection.New[title.Title](s.parser.Site())
	for _, lt := range parsed {
		in.Add(lt.Title)
	}

	ctx := context.Background()
	if secs := s.config.Server.JobTimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	res, err := s.registry.Run(ctx, request.Job, s.parser.Site(), jobs.Params(request.Params), in)
	if err != nil {
		s.sendError(request.ID, err.Error(), jobErrorCode(err))
		return
	}

	results := make([]ParsedTitle, 0, res.Output.Len()+len(failed))
	for _, t := range res.Output.All() {
		results = append(results, toParsed(t))
	}
	s.sendResponse(Response{
		ID:        request.ID,
		Status:    "ok",
		Titles:    append(results, failed...),
		Messages:  res.Messages,
		RunID:     res.RunID.String(),
		Count:     res.Output.Len(),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func jobErrorCode(err error) int {
	switch {
	case errors.Is(err, jobs.ErrUnknownJob):
		return 404
	case errors.Is(err, jobs.ErrBadParams):
		return 400
	case errors.Is(err, context.DeadlineExceeded):
		return 504
	}
	return 500
}

// handleComplete lists namespace names and interwiki prefixes that start
// with the request prefix.
func (s *Server) handleComplete(request Request) {
	start := time.Now()
	site := s.parser.Site()
	names := site.Namespaces.NamesWithPrefix(request.Prefix)
	names = append(names, site.Interwiki.PrefixesStartingWith(request.Prefix)...)
	s.sendResponse(Response{
		ID:        request.ID,
		Status:    "ok",
		Names:     names,
		Count:     len(names),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func toParsed(t title.SimpleTitle) ParsedTitle {
	w := title.ToWire(t)
	pt := ParsedTitle{
		Text:        fmt.Sprint(t),
		Interwiki:   w.Interwiki,
		Namespace:   w.Namespace,
		PageName:    w.PageName,
		Fragment:    w.Fragment,
		HasFragment: w.HasFragment,
	}
	if lt, ok := t.(*title.LinkTitle); ok {
		pt.Coerced = lt.Coerced
		pt.ForcedInterwiki = lt.ForcedInterwikiLink
		pt.ForcedNamespace = lt.ForcedNamespaceLink
	}
	return pt
}
