package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register decoder for DecodeConfig
	"image/png"
	"log"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Image formats understood by the PDF renderer.
const (
	FormatPNG  = "PNG"
	FormatJPEG = "JPEG"
)

// Photo is a decoded profile image.
type Photo struct {
	Data   []byte
	MIME   string
	Format string
}

// DataURI encodes the photo as a base64 data URI.
func (p *Photo) DataURI() string {
	return "data:" + p.MIME + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// NewPhoto checks that data is a PNG or JPEG image. contentType is the
// declared MIME type; when it is not an image type the bytes are sniffed.
// The format follows the MIME type: image/png is PNG, anything else JPEG.
func NewPhoto(data []byte, contentType string) (*Photo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		mediaType, _, _ = mime.ParseMediaType(mimetype.Detect(data).String())
	}

	format := FormatJPEG
	if mediaType == "image/png" {
		format = FormatPNG
	}

	_, decoded, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image (%s): %w", mediaType, err)
	}
	if (decoded == "png") != (format == FormatPNG) {
		return nil, fmt.Errorf("image declared as %s is %s", mediaType, decoded)
	}
	if format == FormatPNG {
		if data, err = embeddablePNG(data); err != nil {
			return nil, fmt.Errorf("unsupported image (%s): %w", mediaType, err)
		}
	}

	return &Photo{Data: data, MIME: mediaType, Format: format}, nil
}

// embeddablePNG re-encodes 16-bit or interlaced PNGs as 8-bit
// non-interlaced RGBA, the only variants the PDF writer can embed.
// Other PNGs are returned unchanged.
func embeddablePNG(data []byte) ([]byte, error) {
	// signature(8) length(4) "IHDR"(4) width(4) height(4) depth(1) color(1)
	// compression(1) filter(1) interlace(1)
	if len(data) < 29 || string(data[12:16]) != "IHDR" {
		return nil, fmt.Errorf("missing PNG header")
	}
	if binary.BigEndian.Uint32(data[16:20]) == 0 || binary.BigEndian.Uint32(data[20:24]) == 0 {
		return nil, fmt.Errorf("empty PNG")
	}
	if data[24] != 16 && data[28] == 0 {
		return data, nil
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseDataURI decodes a "data:" URI.
func ParseDataURI(uri string) (*Photo, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid data URI payload: %w", err)
		}
		data = []byte(unescaped)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return NewPhoto(data, mediaType)
}

// PhotoStrategy is one way of obtaining a remote photo.
type PhotoStrategy interface {
	Name() string
	Fetch(ctx context.Context, rawURL string, circular bool) (*Photo, error)
}

// ProxyStrategy asks the image proxy for the photo, optionally cropped to
// a circle: GET {Endpoint}?url=...&circular=true|false.
type ProxyStrategy struct {
	Endpoint string
	Options  *Options
}

// Name implements PhotoStrategy.
func (s *ProxyStrategy) Name() string { return "proxy" }

// Fetch implements PhotoStrategy.
func (s *ProxyStrategy) Fetch(ctx context.Context, rawURL string, circular bool) (*Photo, error) {
	endpoint, err := url.Parse(s.Endpoint)
	if err != nil {
		return nil, &Error{URL: s.Endpoint, Message: "invalid proxy endpoint", Cause: err}
	}
	q := endpoint.Query()
	q.Set("url", rawURL)
	q.Set("circular", strconv.FormatBool(circular))
	endpoint.RawQuery = q.Encode()

	return getPhoto(ctx, endpoint.String(), s.Options)
}

// DirectStrategy downloads the photo from its own URL.
type DirectStrategy struct {
	Options *Options
}

// Name implements PhotoStrategy.
func (s *DirectStrategy) Name() string { return "direct" }

// Fetch implements PhotoStrategy.
func (s *DirectStrategy) Fetch(ctx context.Context, rawURL string, _ bool) (*Photo, error) {
	return getPhoto(ctx, rawURL, s.Options)
}

func getPhoto(ctx context.Context, urlStr string, opts *Options) (*Photo, error) {
	result, err := Get(ctx, urlStr, opts)
	if err != nil {
		return nil, err
	}
	photo, err := NewPhoto(result.Body, result.ContentType)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "invalid image", Cause: err}
	}
	return photo, nil
}

// Chain acquires photos by trying each strategy in order. The first success
// wins; successful remote results are written to the cache when one is set.
type Chain struct {
	Strategies []PhotoStrategy
	Cache      PhotoCache
	Verbose    bool
}

// NewChain returns a chain over the given strategies. cache may be nil.
func NewChain(cache PhotoCache, strategies ...PhotoStrategy) *Chain {
	return &Chain{Strategies: strategies, Cache: cache}
}

// NewDefaultChain tries the proxy (when configured) and then the original URL.
func NewDefaultChain(proxyURL string, cache PhotoCache, opts *Options) *Chain {
	var strategies []PhotoStrategy
	if proxyURL != "" {
		strategies = append(strategies, &ProxyStrategy{Endpoint: proxyURL, Options: opts})
	}
	strategies = append(strategies, &DirectStrategy{Options: opts})
	return NewChain(cache, strategies...)
}

// Acquire returns the photo at rawURL, or nil when it cannot be obtained.
// Data URIs are decoded as they are; only http(s) URLs go to the network.
// Failures are logged and never returned.
func (c *Chain) Acquire(ctx context.Context, rawURL string, circular bool) *Photo {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil
	}

	if strings.HasPrefix(strings.ToLower(rawURL), "data:") {
		photo, err := ParseDataURI(rawURL)
		if err != nil {
			log.Printf("[photo] skipping data URI: %v", err)
			return nil
		}
		return photo
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		log.Printf("[photo] skipping unsupported URL %q", rawURL)
		return nil
	}

	if c.Cache != nil {
		photo, found, err := c.Cache.Get(ctx, rawURL, circular)
		if err != nil {
			log.Printf("[photo] cache lookup failed: %v", err)
		} else if found {
			return photo
		}
	}

	for _, strategy := range c.Strategies {
		photo, err := strategy.Fetch(ctx, rawURL, circular)
		if err != nil {
			log.Printf("[photo] %s fetch failed: %v", strategy.Name(), err)
			continue
		}
		if c.Verbose {
			log.Printf("[photo] %s fetch succeeded (%s, %d bytes)", strategy.Name(), photo.MIME, len(photo.Data))
		}
		if c.Cache != nil {
			if err := c.Cache.Set(ctx, rawURL, circular, photo); err != nil {
				log.Printf("[photo] cache store failed: %v", err)
			}
		}
		return photo
	}

	log.Printf("[photo] all strategies failed for %s, continuing without photo", rawURL)
	return nil
}
