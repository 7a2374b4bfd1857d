package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"locus/internal/pkg/logger"
	"locus/pkg/client"
	"locus/pkg/workspace"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	stateDir  string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "locus",
	Short: "Read, annotate and cite documents from the terminal",
	Long: `locus is a terminal client for a locus server.

Quick Start:
  locus login alice             # log in and remember the session
  locus list                    # list the catalog
  locus show <id>               # print a document and its highlights
  locus ask <id> "question"     # ask the assistant about a document`,
	SilenceUsage: true,
}

// session bundles what a command needs to talk to the server.
type session struct {
	ws    *workspace.Workspace
	api   *client.HTTPClient
	users *client.UserStore
	log   logger.ILogger
}

func (s *session) Close() {
	if err := s.users.Close(); err != nil {
		s.log.Warn("CLI", "Failed to close user store", map[string]interface{}{"error": err.Error()})
	}
	_ = s.log.Sync()
}

// open restores the workspace from the state directory and loads the
// catalog and highlights when a user is logged in.
func open(ctx context.Context, refresh bool) (*session, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	var log logger.ILogger = logger.NewNop()
	if verbose {
		log = logger.NewIsolatedLogger(filepath.Join(stateDir, "locus.log"))
	}

	users, err := client.OpenUserStore(filepath.Join(stateDir, "user"))
	if err != nil {
		return nil, err
	}

	api := client.NewHTTPClient(serverURL)
	ws, err := workspace.New(api, users, log, workspace.Options{})
	if err != nil {
		_ = users.Close()
		return nil, err
	}

	s := &session{ws: ws, api: api, users: users, log: log}
	if refresh {
		if err := ws.Refresh(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// socketURL maps the server URL onto its websocket endpoint.
func socketURL() string {
	u := strings.TrimRight(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "locus")
	}
	return ".locus"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("LOCUS_SERVER", "http://localhost:5000"), "locus server URL")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", defaultStateDir(), "directory for the saved login and logs")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write a debug log to the state directory")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
