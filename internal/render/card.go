package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"brandgen/internal/models"
)

// CardStyle holds the visual parameters of a card.
type CardStyle struct {
	Width, Height   int
	Padding         int
	TitleSize       float64
	BodySize        float64
	FooterSize      float64
	Background      color.Color
	Accent          color.Color
	Text            color.Color
	Muted           color.Color
	MaxTitleLines   int
	MaxBodyLines    int
	AccentBarHeight int
}

// DefaultCardStyle is a 900x1200 light card.
func DefaultCardStyle() CardStyle {
	return CardStyle{
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		Padding:         72,
		TitleSize:       72,
		BodySize:        36,
		FooterSize:      30,
		Background:      color.RGBA{R: 0xfa, G: 0xf8, B: 0xf5, A: 0xff},
		Accent:          color.RGBA{R: 0xd9, G: 0x3f, B: 0x2b, A: 0xff},
		Text:            color.RGBA{R: 0x1d, G: 0x1d, B: 0x1f, A: 0xff},
		Muted:           color.RGBA{R: 0x6b, G: 0x6b, B: 0x70, A: 0xff},
		MaxTitleLines:   3,
		MaxBodyLines:    14,
		AccentBarHeight: 16,
	}
}

// CardRenderer draws cards in-process with the Go fonts.
type CardRenderer struct {
	style   CardStyle
	regular *sfnt.Font
	bold    *sfnt.Font
}

// NewCardRenderer parses the embedded fonts once. Faces are created per
// render since opentype faces are not safe for concurrent use.
func NewCardRenderer(style CardStyle) (*CardRenderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &CardRenderer{style: style, regular: regular, bold: bold}, nil
}

type faces struct {
	title, body, footer font.Face
}

// openFaces is the scoped rendering surface; close releases it on every path.
func (c *CardRenderer) openFaces() (*faces, func(), error) {
	f := &faces{}
	closeAll := func() {
		for _, face := range []font.Face{f.title, f.body, f.footer} {
			if face != nil {
				_ = face.Close()
			}
		}
	}

	var err error
	if f.title, err = newFace(c.bold, c.style.TitleSize); err != nil {
		closeAll()
		return nil, nil, err
	}
	if f.body, err = newFace(c.regular, c.style.BodySize); err != nil {
		closeAll()
		return nil, nil, err
	}
	if f.footer, err = newFace(c.bold, c.style.FooterSize); err != nil {
		closeAll()
		return nil, nil, err
	}
	return f, closeAll, nil
}

func newFace(f *sfnt.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Render implements Renderer.
func (c *CardRenderer) Render(ctx context.Context, rec models.BrandRecord) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := c.style
	if s.Width <= 0 || s.Height <= 0 {
		return nil, errors.New("card has no area")
	}

	f, release, err := c.openFaces()
	if err != nil {
		return nil, err
	}
	defer release()

	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.Background), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, s.Width, s.AccentBarHeight), image.NewUniform(s.Accent), image.Point{}, draw.Src)

	maxWidth := s.Width - 2*s.Padding
	y := s.Padding + s.AccentBarHeight

	title := strings.TrimSpace(rec.Brand)
	if title == "" {
		title = UntitledText
	}
	y = drawLines(img, f.title, s.Text, s.Padding, y, wrap(f.title, title, maxWidth, s.MaxTitleLines))

	y += f.body.Metrics().Height.Ceil()
	draw.Draw(img, image.Rect(s.Padding, y, s.Padding+120, y+6), image.NewUniform(s.Accent), image.Point{}, draw.Src)
	y += 2 * f.body.Metrics().Height.Ceil()

	desc := strings.TrimSpace(rec.Description)
	if desc == "" {
		desc = NoDescriptionText
	}
	drawLines(img, f.body, s.Text, s.Padding, y, wrap(f.body, desc, maxWidth, s.MaxBodyLines))

	if country := strings.TrimSpace(rec.Country); country != "" {
		footerY := s.Height - s.Padding - f.footer.Metrics().Height.Ceil()
		drawLines(img, f.footer, s.Muted, s.Padding, footerY, wrap(f.footer, strings.ToUpper(country), maxWidth, 1))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// drawLines draws lines top-down from y and returns the y below the last line.
func drawLines(dst draw.Image, face font.Face, col color.Color, x, y int, lines []string) int {
	m := face.Metrics()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	for _, line := range lines {
		y += m.Ascent.Ceil()
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		y += m.Descent.Ceil() + m.Height.Ceil()/4
	}
	return y
}

// wrap breaks text into lines no wider than maxWidth pixels. Words longer
// than a line are split by rune. Output beyond maxLines is cut and the last
// kept line ends with an ellipsis.
func wrap(face font.Face, text string, maxWidth, maxLines int) []string {
	fits := func(s string) bool { return font.MeasureString(face, s).Ceil() <= maxWidth }

	var lines []string
	current := ""
	push := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}

	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if fits(candidate) {
			current = candidate
			continue
		}
		push()
		for !fits(word) {
			cut := splitToFit(word, fits)
			lines = append(lines, word[:cut])
			word = word[cut:]
		}
		current = word
	}
	push()

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		for len(last) > 0 && !fits(string(last)+"…") {
			last = last[:len(last)-1]
		}
		lines[maxLines-1] = string(last) + "…"
	}
	return lines
}

// splitToFit returns the byte length of the longest rune prefix of word that
// fits, and at least one rune so wrapping always makes progress.
func splitToFit(word string, fits func(string) bool) int {
	cut := 0
	for cut < len(word) {
		_, size := utf8.DecodeRuneInString(word[cut:])
		if !fits(word[:cut+size]) {
			break
		}
		cut += size
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(word)
		return size
	}
	return cut
}
