package rendering

import (
	"io"
	"strings"
	"unicode/utf8"
)

type recordedText struct {
	X, Y  float64
	Text  string
	Style string
	Size  float64
	Color RGB
	Page  int
}

type recordedLink struct {
	X, Y, W, H float64
	URL        string
}

// recorder is an in-memory Canvas. Widths assume every rune is half as
// wide as the font size.
type recorder struct {
	pages    int
	style    string
	size     float64
	color    RGB
	texts    []recordedText
	links    []recordedLink
	images   []string
	imageErr error
	err      error
	panicOn  string
}

func (r *recorder) AddPage() { r.pages++ }
func (r *recorder) PageSize() (float64, float64) { return 210, 297 }
func (r *recorder) SetFont(style string, size float64) { r.style, r.size = style, size }
func (r *recorder) SetTextColor(c RGB) { r.color = c }

func (r *recorder) StringWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * r.size * ptToMM * 0.5
}

func (r *recorder) Text(x, y float64, s string) {
	if r.panicOn != "" && s == r.panicOn {
		panic("layout exploded on " + s)
	}
	r.texts = append(r.texts, recordedText{X: x, Y: y, Text: s, Style: r.style, Size: r.size, Color: r.color, Page: r.pages})
}

func (r *recorder) Line(float64, float64, float64, float64, float64, RGB) {}

func (r *recorder) Link(x, y, w, h float64, url string) {
	r.links = append(r.links, recordedLink{X: x, Y: y, W: w, H: h, URL: url})
}

func (r *recorder) Image(name string, _ []byte, format string, _, _, _, _ float64) error {
	if r.imageErr != nil {
		return r.imageErr
	}
	r.images = append(r.images, name+":"+format)
	return nil
}

func (r *recorder) Output(w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-recorded\n"+strings.Join(r.lines(), "\n"))
	return err
}

func (r *recorder) Err() error { return r.err }

func (r *recorder) lines() []string {
	out := make([]string, 0, len(r.texts))
	for _, t := range r.texts {
		out = append(out, t.Text)
	}
	return out
}

func (r *recorder) find(text string) (recordedText, bool) {
	for _, t := range r.texts {
		if t.Text == text {
			return t, true
		}
	}
	return recordedText{}, false
}
