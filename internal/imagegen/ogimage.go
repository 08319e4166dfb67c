package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/models"
)

var (
	fontScore   font.Face
	fontLarge   font.Face
	fontRegular font.Face
	fontOnce    sync.Once
	fontErr     error
)

func newFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func loadFonts() {
	fontOnce.Do(func() {
		if fontScore, fontErr = newFace(gobold.TTF, 180); fontErr != nil {
			fontErr = fmt.Errorf("score face: %w", fontErr)
			return
		}
		if fontLarge, fontErr = newFace(gobold.TTF, 56); fontErr != nil {
			fontErr = fmt.Errorf("large face: %w", fontErr)
			return
		}
		if fontRegular, fontErr = newFace(goregular.TTF, 34); fontErr != nil {
			fontErr = fmt.Errorf("regular face: %w", fontErr)
		}
	})
}

// CardData is the text on a share card.
type CardData struct {
	Title    string // area display name
	Mode     string // activity display name
	Score    int
	Label    models.Label
	Headline string // vibe line
	Window   string // best-window summary
	Footer   string // freshness and site name
}

// OGImageCache keeps rendered cards for a short period, keyed by area and mode.
type OGImageCache struct {
	mu       sync.RWMutex
	entries  map[string]ogEntry
	cacheTTL time.Duration
}

type ogEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewOGImageCache(ttl time.Duration) *OGImageCache {
	return &OGImageCache{
		entries:  make(map[string]ogEntry),
		cacheTTL: ttl,
	}
}

// Get returns the cached card for key if still valid.
func (c *OGImageCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

func (c *OGImageCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = ogEntry{data: data, expiresAt: time.Now().Add(c.cacheTTL)}
}

// Invalidate drops every card whose key starts with prefix.
func (c *OGImageCache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// OGWidth and OGHeight are the standard Open Graph image dimensions.
const (
	OGWidth  = 1200
	OGHeight = 630
)

// GenerateOGImage renders a card over a backdrop photo, cropped to fill.
func GenerateOGImage(backdrop []byte, data CardData) ([]byte, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fmt.Errorf("load fonts: %w", fontErr)
	}

	src, _, err := image.Decode(bytes.NewReader(backdrop))
	if err != nil {
		return nil, fmt.Errorf("decode backdrop: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))
	coverCrop(dst, src)
	drawGradientOverlay(dst)
	drawCard(dst, data)
	return encodePNG(dst)
}

// GenerateFallbackOGImage renders a card on the tier's palette background.
func GenerateFallbackOGImage(data CardData) ([]byte, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fmt.Errorf("load fonts: %w", fontErr)
	}

	p := forecast.GetPalette(data.Label)
	bg := ParseHex(p.Background)
	accent := ParseHex(p.Accent)

	img := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))
	for y := 0; y < OGHeight; y++ {
		// Fade a little of the accent in towards the bottom.
		t := float64(y) / float64(OGHeight) * 0.25
		row := color.RGBA{
			R: blend(bg.R, accent.R, t),
			G: blend(bg.G, accent.G, t),
			B: blend(bg.B, accent.B, t),
			A: 255,
		}
		for x := 0; x < OGWidth; x++ {
			img.SetRGBA(x, y, row)
		}
	}
	drawCard(img, data)
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode OG image: %w", err)
	}
	return buf.Bytes(), nil
}

// coverCrop scales src to cover dst and centers it, nearest neighbour.
func coverCrop(dst *image.RGBA, src image.Image) {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return
	}
	scale := float64(OGWidth) / float64(srcW)
	if s := float64(OGHeight) / float64(srcH); s > scale {
		scale = s
	}
	offsetX := (int(float64(srcW)*scale) - OGWidth) / 2
	offsetY := (int(float64(srcH)*scale) - OGHeight) / 2

	for y := 0; y < OGHeight; y++ {
		for x := 0; x < OGWidth; x++ {
			sx := int(float64(x+offsetX) / scale)
			sy := int(float64(y+offsetY) / scale)
			if sx >= 0 && sx < srcW && sy >= 0 && sy < srcH {
				dst.Set(x, y, src.At(b.Min.X+sx, b.Min.Y+sy))
			}
		}
	}
}

// drawGradientOverlay darkens the lower part of the image so text reads.
func drawGradientOverlay(img *image.RGBA) {
	bounds := img.Bounds()
	gradientHeight := 420

	for y := bounds.Max.Y - gradientHeight; y < bounds.Max.Y; y++ {
		progress := float64(y-(bounds.Max.Y-gradientHeight)) / float64(gradientHeight)
		alpha := progress * progress * 0.85

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			orig := img.RGBAAt(x, y)
			orig.R = uint8(float64(orig.R) * (1 - alpha))
			orig.G = uint8(float64(orig.G) * (1 - alpha))
			orig.B = uint8(float64(orig.B) * (1 - alpha))
			img.SetRGBA(x, y, orig)
		}
	}
}

func drawCard(img *image.RGBA, data CardData) {
	p := forecast.GetPalette(data.Label)
	accent := ParseHex(p.Accent)
	text := ParseHex(p.Text)
	muted := ParseHex(p.TextMuted)

	// Accent stripe down the left edge.
	for y := 0; y < OGHeight; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, accent)
		}
	}

	header := data.Title
	if data.Mode != "" {
		header += " · " + data.Mode
	}
	drawText(img, header, 60, 80, muted, fontRegular)

	score := strconv.Itoa(data.Score)
	drawText(img, score, 52, 280, accent, fontScore)
	labelX := 60 + font.MeasureString(fontScore, score).Ceil() + 30
	drawText(img, string(data.Label), labelX, 270, text, fontLarge)

	if data.Headline != "" {
		drawText(img, data.Headline, 60, 380, text, fontRegular)
	}
	if data.Window != "" {
		drawText(img, data.Window, 60, 450, muted, fontRegular)
	}
	if data.Footer != "" {
		drawText(img, data.Footer, 60, OGHeight-50, muted, fontRegular)
	}
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func blend(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

// ParseHex parses #RGB, #RRGGBB or #RRGGBBAA. Invalid input gives opaque grey.
func ParseHex(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{128, 128, 128, 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{128, 128, 128, 255}
	}
	if len(s) == 6 {
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}
