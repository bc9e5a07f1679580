package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hnanmal/B-note/internal/calc"
	"github.com/hnanmal/B-note/internal/config"
	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/logging"
	"github.com/hnanmal/B-note/internal/tree"
)

// DBFileName is the database file searched for upward from the working directory.
const DBFileName = ".bnote.db"

var (
	dbPath   string
	cfgFile  string
	logLevel string
	logFile  string
	jsonOut  bool

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "bnote",
	Short:         "Construction cost catalog: formula quantities, work masters and reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = c
		l, err := logging.New(logging.Options{
			Level: c.Log.Level,
			File:  c.Log.File,
			JSON:  c.Log.JSON,
		}, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		if c.File != "" {
			logger.Debug("loaded config", zap.String("file", c.File))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to "+DBFileName+" database")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to "+config.FileName+" (default: search upward)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this rotated file")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON")
}

// DiscoverDB finds the database path using priority: env > flag/config > walk-up.
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("BNOTE_DB"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	// 2. CLI flag or config file
	configured := dbPath
	if configured == "" && cfg != nil {
		configured = cfg.DB
	}
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		return "", fmt.Errorf("database not found at %s (run bnote init)", configured)
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, DBFileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return "", fmt.Errorf("no %s found (set BNOTE_DB, use --db, or run bnote init)", DBFileName)
}

// OpenDatabase discovers, opens and migrates the database.
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	logger.Debug("opening database", zap.String("path", path))
	return db.Open(path)
}

func wantJSON() bool {
	return jsonOut || (cfg != nil && cfg.JSON())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

// ResolveFamily finds a family node by id or by a unique name match.
func ResolveFamily(forest *tree.Forest, reference string) (*tree.TreeNode, error) {
	// 1. Exact ID match
	if id, err := strconv.ParseInt(strings.TrimSpace(reference), 10, 64); err == nil {
		if tn, ok := forest.Node(id); ok {
			return tn, nil
		}
	}

	// 2. Name match: exact (case-insensitive) first, then substring
	ref := strings.ToLower(strings.TrimSpace(reference))
	var exact, partial []*tree.TreeNode
	for _, row := range forest.Rows() {
		if row.IsItem() {
			continue
		}
		name := strings.ToLower(row.Name)
		tn, _ := forest.Node(row.ID)
		switch {
		case name == ref:
			exact = append(exact, tn)
		case strings.Contains(name, ref):
			partial = append(partial, tn)
		}
	}
	matches := exact
	if len(matches) == 0 {
		matches = partial
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("family not found: %s", reference)
	}

	limit := 10
	if len(matches) < limit {
		limit = len(matches)
	}
	lines := make([]string, limit)
	for i := 0; i < limit; i++ {
		lines[i] = fmt.Sprintf("  %d %s", matches[i].ID, strings.Join(forest.Path(matches[i].ID), calc.PathSeparator))
	}
	return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a node ID instead.",
		reference, len(matches), strings.Join(lines, "\n"))
}
