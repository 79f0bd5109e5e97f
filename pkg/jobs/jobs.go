// Package jobs runs bot jobs over title collections.
//
// Jobs are listed in a Registry at startup: each entry pairs an ID with a
// constructor closure, so the set of jobs is fixed at compile time.
//
//	reg := jobs.Builtin()
//	res, err := reg.Run(ctx, "talk-pages", s, nil, input)
package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/wikibot/pkg/collection"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("job already registered")
	ErrBadParams    = errors.New("invalid job parameters")
)

// Params are the string options passed to a job constructor.
type Params map[string]string

// Get returns the value for key, or def when unset.
func (p Params) Get(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Bool reads a boolean option.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q is not a boolean", ErrBadParams, key, v)
	}
	return b, nil
}

// Ints reads a comma-separated list of integers such as "0,14".
func (p Params) Ints(key string) ([]int, error) {
	v := strings.TrimSpace(p[key])
	if v == "" {
		return nil, nil
	}
	var ids []int
	for _, field := range strings.Split(v, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("%w: %s contains %q", ErrBadParams, key, field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseParams reads "key=value" pairs separated by commas or semicolons.
// Values may not contain ';'; use it to separate pairs whose values hold
// commas: "namespaces=0,14;mode=only".
func ParseParams(s string) (Params, error) {
	p := Params{}
	s = strings.TrimSpace(s)
	if s == "" {
		return p, nil
	}
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	for _, pair := range strings.Split(s, sep) {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrBadParams, pair)
		}
		p[key] = strings.TrimSpace(value)
	}
	return p, nil
}

// Report is what a job hands back: its output titles and any notes for the
// operator.
type Report struct {
	Output   *collection.Collection[title.Title]
	Messages []string
}

// Job processes one collection of titles.
type Job interface {
	Run(ctx context.Context, in *collection.Collection[title.Title]) (*Report, error)
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context, in *collection.Collection[title.Title]) (*Report, error)

func (f JobFunc) Run(ctx context.Context, in *collection.Collection[title.Title]) (*Report, error) {
	return f(ctx, in)
}

// Constructor builds a job for a site from its parameters.
type Constructor func(s *site.Site, p Params) (Job, error)

// Info describes a registered job.
type Info struct {
	ID          string
	Description string
	New         Constructor
}

// Result is a finished run.
type Result struct {
	RunID    uuid.UUID
	JobID    string
	Started  time.Time
	Duration time.Duration
	Report
}

// Registry maps job IDs to constructors.
type Registry struct {
	jobs map[string]Info
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]Info)}
}

// Register adds a job. IDs are unique.
func (r *Registry) Register(info Info) error {
	if info.ID == "" || info.New == nil {
		return fmt.Errorf("%w: job needs an ID and a constructor", ErrBadParams)
	}
	if _, exists := r.jobs[info.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, info.ID)
	}
	r.jobs[info.ID] = info
	return nil
}

// MustRegister is Register for startup code.
func (r *Registry) MustRegister(info Info) {
	if err := r.Register(info); err != nil {
		panic(err)
	}
}

// Lookup returns the job registered under id.
func (r *Registry) Lookup(id string) (Info, bool) {
	info, ok := r.jobs[id]
	return info, ok
}

// IDs returns the registered job IDs in order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// New builds job id for s.
func (r *Registry) New(id string, s *site.Site, p Params) (Job, error) {
	info, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: job %s needs a site", title.ErrInvalidInput, id)
	}
	job, err := info.New(s, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create job %s: %w", id, err)
	}
	return job, nil
}

// Run builds and runs job id over in.
func (r *Registry) Run(ctx context.Context, id string, s *site.Site, p Params, in *collection.Collection[title.Title]) (*Result, error) {
	job, err := r.New(id, s, p)
	if err != nil {
		return nil, err
	}
	if in == nil {
		in = collection.New[title.Title](s)
	}

	res := &Result{RunID: uuid.New(), JobID: id, Started: time.Now()}
	log.Debugf("Starting job %s (run %s) on %d titles", id, res.RunID, in.Len())

	report, err := job.Run(ctx, in)
	res.Duration = time.Since(res.Started)
	if err != nil {
		log.Errorf("Job %s (run %s) failed after %v: %v", id, res.RunID, res.Duration, err)
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	res.Report = *report
	if res.Output == nil {
		res.Output = collection.New[title.Title](s)
	}

	log.Debugf("Job %s (run %s) finished in %v: %d titles, %d messages",
		id, res.RunID, res.Duration, res.Output.Len(), len(res.Messages))
	return res, nil
}
