// Copyright 2025 The TagServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the tag suggestion server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

TagServe suggests tags for the note being edited, ranked by how often each
tag shares a note with the tags already present in it. The corpus is a vault:
a directory of markdown notes whose tags come from YAML frontmatter and from
inline #tags in the body.

# Usage

Start the server over the current directory:

	tagserve

Use a specific vault and enable debug mode:

	tagserve --vault ~/notes -d

Run in CLI mode for interactive testing:

	tagserve -c --vault ~/notes --note daily/today.md --limit 10

# Configuration

Runtime configuration lives in a TOML file that is created with defaults if
it doesn't exist:

	[server]
	max_limit = 64
	default_limit = 20
	max_query = 60
	watch = true

	[vault]
	root = "."
	extensions = [".md"]
	ignore = [".git", ".obsidian", ".trash"]
	workers = 8

	[trigger]
	marker = "@"

# Server Mode

The default mode starts a MessagePack IPC server on stdin/stdout. See package
server for the protocol. When watch is enabled, edits to notes invalidate
their cached metadata so the next request sees them.

# CLI Mode

CLI mode reads lines from stdin. Each line is the text before the cursor in
the note given by --note; when it ends in the trigger marker plus a query,
the ranked tags are printed. A line starting with :tags lists known tags by
prefix.

# Command Line Flags

	--vault string
	    Notes directory (default from config)
	--config string
	    Path to config file
	-d, --debug
	    Enable debug mode with detailed logging
	-c, --cli
	    Run in CLI mode instead of server mode
	--note string
	    Note being edited in CLI mode, relative to the vault
	--limit int
	    Number of suggestions to return in CLI mode (default from config)
	--version
	    Show current version
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bastiangx/tagserve/internal/cli"
	"github.com/bastiangx/tagserve/internal/logger"
	"github.com/bastiangx/tagserve/internal/utils"
	"github.com/bastiangx/tagserve/pkg/config"
	"github.com/bastiangx/tagserve/pkg/server"
	"github.com/bastiangx/tagserve/pkg/suggest"
	"github.com/bastiangx/tagserve/pkg/vault"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

const (
	Version = "0.1.0-beta"
	AppName = "tagserve"
	gh      = "https://github.com/bastiangx/tagserve"
)

// sigHandler cancels the returned context on the first signal and exits on the second.
func sigHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		<-c
		os.Exit(0)
	}()
	return ctx
}

// main wires the vault, engine and either the server or the CLI.
// It does not implement logic for them and only manages the flow.
func main() {
	ctx := sigHandler()

	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	showVersion := flags.Bool("version", false, "Show current version")
	vaultDir := flags.String("vault", "", "Notes directory (default from config)")
	configFile := flags.String("config", "", "Path to config file")
	debugMode := flags.BoolP("debug", "d", false, "Toggle debug mode")
	cliMode := flags.BoolP("cli", "c", false, "Run CLI -- useful for testing and debugging")
	note := flags.String("note", "", "Note being edited in CLI mode, relative to the vault")
	limit := flags.Int("limit", 0, "Number of suggestions to return in CLI mode (default from config)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.SetDebug(*debugMode)

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	log.Debug("Runtime", "info", pathResolver.GetRuntimeInfo())

	appConfig, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	root := appConfig.Vault.Root
	if *vaultDir != "" {
		root = *vaultDir
	}
	resolvedRoot, err := pathResolver.GetVaultDir(root)
	if err != nil {
		log.Fatalf("Failed to resolve vault dir: (%v)", err)
	}

	notes, err := vault.Open(vault.Options{
		Root:       resolvedRoot,
		Extensions: appConfig.Vault.Extensions,
		Ignore:     appConfig.Vault.Ignore,
	})
	if err != nil {
		log.Fatalf("Failed to open vault: %v", err)
	}
	log.Debugf("Using vault at: %s", notes.Root())

	engine := suggest.New(notes,
		suggest.WithWorkers(appConfig.Vault.Workers),
		suggest.WithLogger(logger.New("suggest")),
	)

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		if *limit < 1 {
			*limit = appConfig.CLI.DefaultLimit
		}
		log.Debug("Input info:", "note", *note, "limit", *limit, "marker", string(appConfig.Marker()))

		inputHandler := cli.NewInputHandler(engine, notes, *note, readNote(notes.Root(), *note),
			appConfig.Marker(), *limit, appConfig.Server.MaxQuery)
		if err := inputHandler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	if appConfig.Server.Watch {
		go func() {
			if err := notes.Watch(ctx, nil); err != nil {
				log.Errorf("Vault watcher stopped: %v", err)
			}
		}()
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(engine, notes, appConfig)
	showStartupInfo(notes.Root())

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// readNote returns the current text of the note being edited, if it exists.
func readNote(root, id string) string {
	if id == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(id)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warnf("Could not read note %s: %v", id, err)
		}
		return ""
	}
	return string(data)
}

func printVersion() {
	l := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ TagServe ] Ranked tag suggestions for your notes")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
// It writes to stderr since stdout carries the IPC stream.
func showStartupInfo(vaultDir string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	log.Infof("TagServe %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("vault: ( %s )", vaultDir)
	log.Info("status: ready")
}
