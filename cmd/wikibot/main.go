// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the wikibot title server, CLI [DBG] and job runner.

Note: This is a BETA release. APIs and functionality may rapidly change.

wikibot resolves MediaWiki link text into structured titles against a site
definition: namespaces, interwiki prefixes and the main page. It can operate
as a MessagePack IPC server for bots written in other languages, as an
interactive CLI for checking how a link parses, or as a one-shot job runner
over title lists.

# Usage

Start the server for the site described in enwiki.toml:

	wikibot -site enwiki

Check titles interactively, with Template as the default namespace:

	wikibot -site enwiki -c -ns 10

Map a list of titles to their talk pages:

	wikibot -site enwiki -job talk-pages -in pages.txt -out talk.txt

Site definitions are TOML files. A bare name is looked up as
<config dir>/sites/<name>.toml. When namespaces are listed they replace the
stock MediaWiki set:

	name = "English Wikipedia"
	version = "1.42.0"
	main_page = "Main Page"

	[[namespace]]
	id = 0
	content = true

	[[namespace]]
	id = 4
	name = "Wikipedia"
	canonical = "Project"
	aliases = ["WP"]
	subpages = true

	[[interwiki]]
	prefix = "de"
	url = "https://de.wikipedia.org/wiki/$1"
	language = "de"

# Configuration

Runtime configuration is read from config.toml, created with defaults if it
doesn't exist, and WIKIBOT_* environment variables:

	[server]
	max_batch = 500
	parse_cache_size = 1024
	job_timeout_seconds = 60

	[site]
	path = "enwiki"
	default_namespace = 0

	[worklist]
	db_path = "worklists.db"

# Jobs

Jobs read titles from a worklist file (-in, .txt or .msgpack) or a stored
worklist (-worklist) and write the result to -out, to a stored worklist
(-save) or to stdout. Job options are passed as -params "key=value;...":

	wikibot -job filter-namespaces -params "namespaces=0,14;mode=only" -in all.txt
	wikibot -job validate -worklist nightly

Run wikibot -jobs to list the available jobs.

# Command Line Flags

	-site string
	    Site definition file or name (default from config)
	-config string
	    Path to config.toml
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-ns int
	    Default namespace for unprefixed titles (default from config)
	-job string
	    Run a job and exit
	-params string
	    Job parameters
	-in, -out string
	    Worklist files for job input and output
	-worklist, -save string
	    Stored worklist names for job input and output
	-jobs
	    List jobs and exit
	-reset-config
	    Overwrite config.toml (or -config) with the defaults and exit
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/bastiangx/wikibot/internal/cli"
	"github.com/bastiangx/wikibot/internal/logger"
	"github.com/bastiangx/wikibot/internal/utils"
	"github.com/bastiangx/wikibot/pkg/collection"
	"github.com/bastiangx/wikibot/pkg/config"
	"github.com/bastiangx/wikibot/pkg/jobs"
	"github.com/bastiangx/wikibot/pkg/server"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/bastiangx/wikibot/pkg/worklist"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	AppName = "wikibot"
	gh      = "https://github.com/bastiangx/wikibot"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires the packages together for the selected mode.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	sitePath := flag.String("site", "", "Site definition file or name (default from config)")
	configPath := flag.String("config", "", "Path to config.toml")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	defaultNS := flag.Int("ns", -1, "Default namespace for unprefixed titles (default from config)")
	jobID := flag.String("job", "", "Run a job over a worklist and exit")
	jobParams := flag.String("params", "", "Job parameters, e.g. \"namespaces=0,14;mode=only\"")
	inPath := flag.String("in", "", "Worklist file to read job input from (.txt, .msgpack)")
	outPath := flag.String("out", "", "Worklist file to write job output to")
	storedIn := flag.String("worklist", "", "Stored worklist to read job input from")
	storedOut := flag.String("save", "", "Stored worklist to write job output to")
	listJobs := flag.Bool("jobs", false, "List available jobs and exit")
	resetConfig := flag.Bool("reset-config", false, "Overwrite config.toml with the defaults and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	}
	if *resetConfig {
		path, err := config.RebuildConfigFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to reset config: %v", err)
		}
		fmt.Println(path)
		return
	}
	appConfig, activeConfig, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Setup(appConfig.Log.Level, appConfig.Log.Format, appConfig.Log.Timestamps, *debugMode); err != nil {
		log.Warnf("Config [log]: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activeConfig))

	registry := jobs.Builtin()
	if *listJobs {
		for _, id := range registry.IDs() {
			info, _ := registry.Lookup(id)
			fmt.Printf("%-18s %s\n", id, info.Description)
		}
		return
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	if *debugMode {
		showRuntimeInfo(pathResolver)
	}

	s, err := loadSite(pathResolver, *sitePath, appConfig.Site.Path)
	if err != nil {
		log.Fatalf("Failed to load site: %v", err)
	}

	ns := appConfig.Site.DefaultNamespace
	if *defaultNS >= 0 {
		ns = *defaultNS
	}
	if s.Namespace(ns) == nil {
		log.Fatalf("Site %q has no namespace %d", s.Name, ns)
	}

	parser, err := title.NewParser(s, appConfig.Server.ParseCacheSize)
	if err != nil {
		log.Fatalf("Failed to create title parser: %v", err)
	}

	if *jobID != "" {
		opts := jobOptions{
			id: *jobID, params: *jobParams, defaultNS: ns,
			inPath: *inPath, outPath: *outPath, storedIn: *storedIn, storedOut: *storedOut,
		}
		if err := runJob(registry, s, pathResolver, appConfig, opts); err != nil {
			log.Fatalf("Job failed: %v", err)
		}
		return
	}

	// CLI is mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(parser, ns, appConfig.CLI)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(parser, registry, appConfig)
	showStartupInfo(s)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// loadSite resolves the site definition named by the flag or the config.
// Without either, a site with the stock namespaces is used.
func loadSite(pr *utils.PathResolver, flagPath, configPath string) (*site.Site, error) {
	name := flagPath
	if name == "" {
		name = configPath
	}
	if name == "" {
		log.Warn("No site definition given, using the default MediaWiki namespaces")
		return site.New(site.DefaultDefinition(AppName))
	}
	path, err := pr.GetSiteFile(name)
	if err != nil {
		return nil, err
	}
	log.Debugf("Using site definition at: %s", path)
	return site.LoadFile(path)
}

type jobOptions struct {
	id        string
	params    string
	defaultNS int
	inPath    string
	outPath   string
	storedIn  string
	storedOut string
}

// runJob loads the input worklist, runs the job and stores its output.
func runJob(registry *jobs.Registry, s *site.Site, pr *utils.PathResolver, cfg *config.Config, opts jobOptions) error {
	params, err := jobs.ParseParams(opts.params)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if cfg.Server.JobTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Server.JobTimeoutSeconds)*time.Second)
		defer cancel()
	}

	var store *worklist.Store
	if opts.storedIn != "" || opts.storedOut != "" {
		dbPath, err := pr.GetDataPath(cfg.Worklist.DBPath)
		if err != nil {
			return err
		}
		store, err = worklist.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var in *collection.Collection[title.Title]
	switch {
	case opts.inPath != "":
		in, err = worklist.ReadFile(opts.inPath, s, opts.defaultNS)
	case opts.storedIn != "":
		in, err = store.Load(ctx, opts.storedIn, s)
	default:
		in, err = worklist.ReadText(os.Stdin, s, opts.defaultNS)
	}
	if err != nil {
		return err
	}

	res, err := registry.Run(ctx, opts.id, s, params, in)
	if err != nil {
		return err
	}
	for _, msg := range res.Messages {
		log.Info(msg)
	}
	log.Infof("Run %s: %d titles in, %d out, took %v", res.RunID, in.Len(), res.Output.Len(), res.Duration)

	switch {
	case opts.outPath != "":
		err = worklist.WriteFile(opts.outPath, res.Output)
	case opts.storedOut != "":
		err = store.Save(ctx, opts.storedOut, res.Output)
	default:
		err = worklist.WriteText(os.Stdout, res.Output)
	}
	return err
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ wikibot ] MediaWiki titles, parsed the way the wiki does")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showRuntimeInfo logs the resolved paths and platform.
func showRuntimeInfo(pr *utils.PathResolver) {
	info := pr.GetRuntimeInfo()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Debug("runtime", k, info[k])
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(s *site.Site) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Info("=========== wikibot ===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("site: %s (%d namespaces, %d interwiki prefixes)", s.Name, s.Namespaces.Len(), s.Interwiki.Len())
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
