package gameground

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Open Graph image size recommended by the major link-preview consumers.
const (
	ogWidth  = 1200
	ogHeight = 630
)

var (
	ogTop    = color.RGBA{R: 0x08, G: 0x0b, B: 0x10, A: 0xff}
	ogBottom = color.RGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff}
	ogAccent = color.RGBA{R: 0x58, G: 0xa6, B: 0xff, A: 0xff}
	ogText   = color.RGBA{R: 0xe6, G: 0xed, B: 0xf3, A: 0xff}
)

// RenderOGImage draws the site's share image: a vertical gradient with the
// site name and tagline. The bitmap font is drawn small and scaled up.
func RenderOGImage(name, tagline string) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, ogWidth, ogHeight))
	for y := 0; y < ogHeight; y++ {
		c := lerp(ogTop, ogBottom, float64(y)/float64(ogHeight-1))
		for x := 0; x < ogWidth; x++ {
			dst.SetRGBA(x, y, c)
		}
	}
	draw.Draw(dst, image.Rect(80, 250, 240, 262), image.NewUniform(ogAccent), image.Point{}, draw.Src)

	drawScaledText(dst, name, ogText, 7, 160)
	if tagline != "" {
		drawScaledText(dst, tagline, ogAccent, 3, 330)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode og image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawScaledText renders s with the 7x13 bitmap face, scales it by factor
// and places it left-aligned at y. Text wider than the canvas is scaled down
// to fit.
func drawScaledText(dst *image.RGBA, s string, col color.Color, factor, y int) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Metrics().Height.Ceil()
	if w == 0 {
		return
	}
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	maxW := ogWidth - 160
	sw, sh := w*factor, h*factor
	if sw > maxW {
		sh = sh * maxW / sw
		sw = maxW
	}
	rect := image.Rect(80, y, 80+sw, y+sh)
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Over, nil)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func (a *App) handleOGImage(c echo.Context) error {
	a.ogOnce.Do(func() {
		a.ogImage, a.ogErr = RenderOGImage(a.Config.Name, "Play Free Games Online")
	})
	if a.ogErr != nil {
		return a.ogErr
	}
	c.Response().Header().Set(echo.HeaderCacheControl, StaticPolicy.Header())
	return c.Blob(http.StatusOK, "image/png", a.ogImage)
}
