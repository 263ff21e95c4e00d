package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/cv-builder/internal/locale"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/rendering"
)

var renderPDFCmd = &cobra.Command{
	Use:   "render-pdf <cv.json>...",
	Short: "Render CV record files to PDF",
	Long: `Validates each CV record file against the record schema and renders it to PDF.
Files are rendered concurrently. A single input is written as CV_First_Last.pdf;
with several inputs each PDF is named after its input file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRenderPDF,
}

var (
	renderOutDir       string
	renderLocale       string
	renderPublishedURL string
	renderWorkers      int
	renderNoPhotos     bool
)

func init() {
	renderPDFCmd.Flags().StringVarP(&renderOutDir, "out", "o", ".", "Directory for the generated PDFs")
	renderPDFCmd.Flags().StringVarP(&renderLocale, "locale", "l", "", "Locale for section titles (default from config)")
	renderPDFCmd.Flags().StringVar(&renderPublishedURL, "published-url", "", "Link printed under the contact details")
	renderPDFCmd.Flags().IntVarP(&renderWorkers, "workers", "w", 0, "Files rendered at once (default from config)")
	renderPDFCmd.Flags().BoolVar(&renderNoPhotos, "no-photos", false, "Skip photo download")

	rootCmd.AddCommand(renderPDFCmd)
}

// renderJob is one input file and where its PDF was written.
type renderJob struct {
	Input  string
	Output string
	Doc    *rendering.Document
}

func runRenderPDF(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	workers := renderWorkers
	if workers <= 0 {
		workers = cfg.RenderWorkers
	}
	tag := renderLocale
	if tag == "" {
		tag = cfg.DefaultLocale
	}

	var photos rendering.PhotoSource
	if !renderNoPhotos {
		photos = photoChain(cfg, nil)
	}
	gen := rendering.NewGenerator(photos, locale.MustLoad())
	gen.Verbose = cfg.Verbose

	if err := os.MkdirAll(renderOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs, err := renderFiles(cmd.Context(), gen, args, renderOutDir, rendering.Options{
		PublishedURL: renderPublishedURL,
		Locale:       tag,
	}, workers)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	for _, job := range jobs {
		if cfg.Verbose {
			printer.PrintDocument(job.Doc, job.Output)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s → %s (%d pages)\n", job.Input, job.Output, job.Doc.Pages)
	}
	return nil
}

// renderFiles renders every input with at most workers files in flight.
// The first failure cancels the remaining files.
func renderFiles(ctx context.Context, gen *rendering.Generator, inputs []string, outDir string, opts rendering.Options, workers int) ([]renderJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	jobs := make([]renderJob, len(inputs))
	names := batchOutputNames(inputs)

	g, gCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, input := range inputs {
		g.Go(func() error {
			doc, err := loadRecordFile(input)
			if err != nil {
				return err
			}
			out, err := gen.GenerateDocument(gCtx, doc, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			name := out.Filename
			if len(inputs) > 1 {
				name = names[i]
			}
			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, out.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write PDF: %w", err)
			}
			// Each goroutine owns its own slot.
			jobs[i] = renderJob{Input: input, Output: path, Doc: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// batchOutputNames names each PDF after its input file. Inputs sharing a
// base name get their 1-based position appended so no output is overwritten.
func batchOutputNames(inputs []string) []string {
	bases := make([]string, len(inputs))
	counts := make(map[string]int, len(inputs))
	for i, input := range inputs {
		bases[i] = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		counts[bases[i]]++
	}

	used := make(map[string]bool, len(inputs))
	names := make([]string, len(inputs))
	for i, base := range bases {
		name := base + ".pdf"
		if counts[base] > 1 {
			name = fmt.Sprintf("%s-%d.pdf", base, i+1)
		}
		for used[name] {
			name = strings.TrimSuffix(name, ".pdf") + "_.pdf"
		}
		used[name] = true
		names[i] = name
	}
	return names
}
