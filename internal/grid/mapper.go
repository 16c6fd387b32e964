// Package grid 实现像素网格编辑器的核心模型：
// 坐标映射、稀疏单元格存储、画笔/橡皮状态机和视口 (平移/缩放)。
// 包内不做任何 IO，所有状态由 Session 持有。
package grid

import (
	"math"

	"pixelgrid/internal/domain"
)

// Point 是屏幕坐标 (像素)，对应指针事件的 offsetX / offsetY。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform 是视口变换：平移 (DX, DY) 与统一缩放 Scale。Scale 必须 > 0。
type Transform struct {
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Scale float64 `json:"scale"`
}

// Identity 初始视口：无平移，缩放 1。
var Identity = Transform{Scale: 1}

// ToCell 将屏幕坐标映射到其所在的半开单元格 [x, x+1)。
// 调用方保证 t.Scale > 0 (Viewport 的缩放钳制负责这一点)。
func ToCell(p Point, t Transform) domain.Cell {
	return domain.Cell{
		X: int(math.Floor((p.X - t.DX) / t.Scale)),
		Y: int(math.Floor((p.Y - t.DY) / t.Scale)),
	}
}

// ToScreen 返回单元格左上角的屏幕坐标，是 ToCell 的逆映射。
func ToScreen(c domain.Cell, t Transform) Point {
	return Point{
		X: float64(c.X)*t.Scale + t.DX,
		Y: float64(c.Y)*t.Scale + t.DY,
	}
}
