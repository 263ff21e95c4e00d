package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/locale"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/preview"
)

var previewCmd = &cobra.Command{
	Use:   "preview <cv.json>",
	Short: "Print the live preview of a CV record file",
	Long: `Reconciles a CV record with the example resume of the chosen locale and prints
the result as snapshot JSON, rendered HTML or a short summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var (
	previewLocale string
	previewFormat string
	previewOutput string
)

func init() {
	previewCmd.Flags().StringVarP(&previewLocale, "locale", "l", "", "Locale of the example content (default from config)")
	previewCmd.Flags().StringVarP(&previewFormat, "format", "f", "json", "Output format: json, html or summary")
	previewCmd.Flags().StringVarP(&previewOutput, "out", "o", "", "Write to this file instead of stdout")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tag := previewLocale
	if tag == "" {
		tag = cfg.DefaultLocale
	}

	doc, err := loadRecordFile(args[0])
	if err != nil {
		return err
	}
	catalogs := locale.MustLoad()
	snap := editor.New(doc, catalogs, tag).Snapshot()

	var out io.Writer = cmd.OutOrStdout()
	if previewOutput != "" {
		f, err := os.Create(previewOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch previewFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	case "html":
		if err := preview.RenderHTML(out, snap, catalogs.Lookup(snap.Locale)); err != nil {
			return fmt.Errorf("failed to render preview: %w", err)
		}
	case "summary":
		observability.NewPrinter(out).PrintSnapshot(snap)
	default:
		return fmt.Errorf("unknown format %q (want json, html or summary)", previewFormat)
	}
	return nil
}
