package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ropdawg/astral/internal"
	"github.com/ropdawg/astral/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	sessionID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export chat sessions to various formats (jsonl, md, yaml, json, html).

You can export all sessions or a specific session by ID.
Use 'astral list' to see available session IDs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions := store.Sessions()
		if sessionID != "" {
			session, _ := sessions.Find(sessionID)
			if session == nil {
				return fmt.Errorf("session not found: %s (use 'astral list' to see available sessions)", sessionID)
			}
			sessions = internal.Collection{session}
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return &internal.StorageError{Path: outputDir, Op: "write", Err: err}
		}

		exported := 0
		ctx := context.Background()
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(sessions), outputDir), func() error {
			for _, session := range sessions {
				if err := exportSession(exporter, session, outputDir); err != nil {
					internal.LogError("Failed to export session %s: %v", session.ID, err)
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}
		if exported == 0 && len(sessions) > 0 {
			return fmt.Errorf("export failed: none of %d session(s) could be written to %s", len(sessions), outputDir)
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", exported, outputDir))
		return nil
	},
}

// exportFileName keeps stored ids from naming paths outside the output dir
func exportFileName(id, ext string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, id)
	if safe == "" || safe == "." || safe == ".." {
		safe = "_"
	}
	return fmt.Sprintf("session_%s.%s", safe, ext)
}

func exportSession(exporter export.Exporter, session *internal.Session, dir string) error {
	path := filepath.Join(dir, exportFileName(session.ID, exporter.Extension()))
	file, err := os.Create(path)
	if err != nil {
		return &internal.StorageError{Path: path, Op: "write", Err: err}
	}

	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return file.Close()
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json, html)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
}
