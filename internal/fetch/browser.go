package fetch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// ScreenshotOptions configures Screenshot.
type ScreenshotOptions struct {
	Width    int64
	Height   int64
	Timeout  time.Duration
	ExecPath string
	Verbose  bool
}

// DefaultScreenshotOptions renders an A4-proportioned thumbnail.
func DefaultScreenshotOptions() *ScreenshotOptions {
	return &ScreenshotOptions{
		Width:   794,
		Height:  1123,
		Timeout: 30 * time.Second,
	}
}

// Screenshot renders an HTML page in headless Chrome and returns a PNG of
// the full page. Requires Chrome/Chromium to be installed on the system.
func Screenshot(ctx context.Context, html []byte, opts *ScreenshotOptions) ([]byte, error) {
	if opts == nil {
		opts = DefaultScreenshotOptions()
	}

	dir, err := os.MkdirTemp("", "cv-preview-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	page := filepath.Join(dir, "preview.html")
	if err := os.WriteFile(page, html, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write preview page: %w", err)
	}

	if opts.Verbose {
		log.Printf("[browser] Capturing preview screenshot (%dx%d)", opts.Width, opts.Height)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	var png []byte
	err = chromedp.Run(browserCtx,
		chromedp.EmulateViewport(opts.Width, opts.Height),
		chromedp.Navigate("file://"+page),
		chromedp.WaitReady("body"),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("browser screenshot failed: %w", err)
	}

	if opts.Verbose {
		log.Printf("[browser] Screenshot captured: %d bytes", len(png))
	}
	return png, nil
}
