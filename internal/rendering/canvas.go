package rendering

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// RGB is a drawing color.
type RGB struct {
	R, G, B int
}

var (
	colorText  = RGB{33, 33, 33}
	colorMuted = RGB{110, 110, 110}
)

// ParseColor reads "#rrggbb" or "#rgb". Invalid input returns fallback.
func ParseColor(hex string, fallback RGB) RGB {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return RGB{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}
}

// Canvas is the drawing surface used by the layout. Coordinates are in
// millimetres from the top-left corner; Text draws at a baseline.
type Canvas interface {
	AddPage()
	PageSize() (width, height float64)
	SetFont(style string, size float64)
	SetTextColor(c RGB)
	StringWidth(s string) float64
	Text(x, y float64, s string)
	Line(x1, y1, x2, y2, width float64, c RGB)
	Link(x, y, w, h float64, url string)
	Image(name string, data []byte, format string, x, y, w, h float64) error
	Output(w io.Writer) error
	Err() error
}

// PDFCanvas draws on an A4 portrait gofpdf document using the core
// Helvetica font.
type PDFCanvas struct {
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

// NewPDFCanvas returns an empty A4 document.
func NewPDFCanvas() Canvas {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("cv-builder", true)
	pdf.SetFont("Helvetica", "", 10)
	return &PDFCanvas{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *PDFCanvas) AddPage() {
	c.pdf.AddPage()
}

func (c *PDFCanvas) PageSize() (float64, float64) {
	return c.pdf.GetPageSize()
}

func (c *PDFCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont("Helvetica", style, size)
}

func (c *PDFCanvas) SetTextColor(rgb RGB) {
	c.pdf.SetTextColor(rgb.R, rgb.G, rgb.B)
}

func (c *PDFCanvas) StringWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.translate(s))
}

func (c *PDFCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.translate(s))
}

func (c *PDFCanvas) Line(x1, y1, x2, y2, width float64, rgb RGB) {
	c.pdf.SetLineWidth(width)
	c.pdf.SetDrawColor(rgb.R, rgb.G, rgb.B)
	c.pdf.Line(x1, y1, x2, y2)
}

func (c *PDFCanvas) Link(x, y, w, h float64, url string) {
	c.pdf.LinkString(x, y, w, h, url)
}

// Image places an image. An image gofpdf cannot parse is dropped and its
// error returned without failing the document.
func (c *PDFCanvas) Image(name string, data []byte, format string, x, y, w, h float64) error {
	if err := c.pdf.Error(); err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: format}
	c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := c.pdf.Error(); err != nil {
		c.pdf.ClearError()
		return err
	}
	c.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return nil
}

func (c *PDFCanvas) Output(w io.Writer) error {
	return c.pdf.Output(w)
}

func (c *PDFCanvas) Err() error {
	return c.pdf.Error()
}
