package grid

import (
	"fmt"
	"math"
)

// 缩放钳制的默认范围。缩放步长按源行为为 1，从 1 缩小会得到 0，必须钳制。
const (
	DefaultMinScale = 0.25
	DefaultMaxScale = 64.0
)

// Viewport 持有平移和缩放，Scale 始终位于 [min, max] 内且 > 0。
type Viewport struct {
	t        Transform
	minScale float64
	maxScale float64
}

// NewViewport 创建单位变换的视口。
func NewViewport(minScale, maxScale float64) (*Viewport, error) {
	if !(minScale > 0) || math.IsInf(minScale, 0) {
		return nil, fmt.Errorf("minimum scale must be a positive number, got %v", minScale)
	}
	if !(maxScale >= minScale) || math.IsInf(maxScale, 0) {
		return nil, fmt.Errorf("maximum scale %v must be finite and >= minimum scale %v", maxScale, minScale)
	}
	v := &Viewport{t: Identity, minScale: minScale, maxScale: maxScale}
	v.t.Scale = clamp(1, minScale, maxScale)
	return v, nil
}

// Transform 返回当前变换。
func (v *Viewport) Transform() Transform { return v.t }

// Scale 返回当前缩放。
func (v *Viewport) Scale() float64 { return v.t.Scale }

// Pan 无条件累加平移量，非有限值被忽略。
func (v *Viewport) Pan(dx, dy float64) bool {
	if !finite(dx) || !finite(dy) {
		return false
	}
	v.t.DX += dx
	v.t.DY += dy
	return dx != 0 || dy != 0
}

// ZoomBy 将 delta 加到缩放上，结果钳制到 [min, max]。
// 返回值 clamped 表示结果被钳制 (或 delta 非法被忽略)。
func (v *Viewport) ZoomBy(delta float64) (clamped bool) {
	if !finite(delta) {
		return true
	}
	want := v.t.Scale + delta
	got := clamp(want, v.minScale, v.maxScale)
	v.t.Scale = got
	return got != want
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
