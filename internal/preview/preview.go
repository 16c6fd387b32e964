// Package preview 将画板单元格渲染为 PNG 预览图。
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"strings"

	"pixelgrid/internal/domain"

	"golang.org/x/image/colornames"
	xdraw "golang.org/x/image/draw"
)

// MaxSide 限制预览图输出的最大边长 (像素)。
const MaxSide = 4096

var ErrEmptyBoard = errors.New("board has no area to render")

// ResolveColor 将颜色名 (SVG 颜色名) 或十六进制值转换为 RGBA。
func ResolveColor(c domain.Color) (color.RGBA, bool) {
	s := string(c)
	if named, ok := colornames.Map[s]; ok {
		return named, true
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	switch len(hex) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range hex {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		hex = expanded.String()
	case 6, 8:
	default:
		return color.RGBA{}, false
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

// Render 在 width x height 的透明画布上绘制边界内的单元格，再按 scale 最近邻放大。
// 边界外的单元格被忽略，无法识别的颜色画成黑色。
func Render(doc *domain.PointsDocument, scale int) (*image.RGBA, error) {
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, ErrEmptyBoard
	}
	if scale < 1 {
		scale = 1
	}
	if m := MaxSide / max(doc.Width, doc.Height); scale > m {
		scale = max(m, 1)
	}
	base := image.NewRGBA(image.Rect(0, 0, doc.Width, doc.Height))
	for c, pairs := range doc.Points {
		rgba, ok := ResolveColor(c)
		if !ok {
			rgba = color.RGBA{A: 0xff}
		}
		for _, p := range pairs {
			if p[0] < 0 || p[1] < 0 || p[0] >= doc.Width || p[1] >= doc.Height {
				continue
			}
			base.SetRGBA(p[0], p[1], rgba)
		}
	}
	if scale == 1 {
		return base, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, doc.Width*scale, doc.Height*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	return out, nil
}

// WritePNG 渲染并以 PNG 编码写出。
func WritePNG(w io.Writer, doc *domain.PointsDocument, scale int) error {
	img, err := Render(doc, scale)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode preview png: %w", err)
	}
	return nil
}
