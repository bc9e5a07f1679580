package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hnanmal/B-note/internal/db"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create and migrate a " + DBFileName + " database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath
		if path == "" && cfg != nil {
			path = cfg.DB
		}
		if path == "" {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			path = filepath.Join(dir, DBFileName)
		}

		d, err := db.Open(path)
		if err != nil {
			return err
		}
		defer d.Close()

		version, err := d.SchemaVersion()
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]any{"path": path, "schema_version": version})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s (schema version %d)\n", path, version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
