// Package imageinfo 读取导入图片的像素尺寸，尺寸即画板的网格边界。
package imageinfo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // 注册 gif 解码器
	_ "image/jpeg" // 注册 jpeg 解码器
	_ "image/png"  // 注册 png 解码器

	_ "golang.org/x/image/bmp"  // 注册 bmp 解码器
	_ "golang.org/x/image/tiff" // 注册 tiff 解码器
	_ "golang.org/x/image/webp" // 注册 webp 解码器
)

var (
	// ErrNoImage 表示没有选择图片 (空上传)。调用方应视为空操作。
	ErrNoImage = errors.New("no image selected")
	// ErrUnsupportedFormat 表示无法识别的图片格式。
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooLarge 表示图片尺寸超出允许的网格大小。
	ErrTooLarge = errors.New("image dimensions exceed the maximum canvas size")
)

// Info 是图片的自然尺寸和格式。
type Info struct {
	Width       int
	Height      int
	Format      string // "png", "jpeg", "gif", "bmp", "tiff", "webp"
	ContentType string
}

// Inspect 只解码图片头部，返回尺寸。maxSide > 0 时限制宽高。
func Inspect(data []byte, maxSide int) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrNoImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnsupportedFormat
		}
		return Info{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("image has empty dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if maxSide > 0 && (cfg.Width > maxSide || cfg.Height > maxSide) {
		return Info{}, fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, cfg.Width, cfg.Height, maxSide)
	}
	return Info{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		ContentType: "image/" + format,
	}, nil
}
