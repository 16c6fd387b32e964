package grid

import "pixelgrid/internal/domain"

// Handle 是渲染端为一个单元格图形分配的句柄。
type Handle uint64

// Line 是网格线段，单位为单元格。
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Stroke 描述网格线的描边样式。
type Stroke struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// GridStroke 细的半透明描边。
var GridStroke = Stroke{Color: "rgba(0,0,0,0.4)", Width: 0.1}

// GridLines 返回覆盖 w x h 区域的 h+1 条水平线和 w+1 条垂直线，单位间距。
func GridLines(w, h int) []Line {
	if w < 0 || h < 0 {
		return nil
	}
	lines := make([]Line, 0, w+h+2)
	for y := 0; y <= h; y++ {
		lines = append(lines, Line{X1: 0, Y1: float64(y), X2: float64(w), Y2: float64(y)})
	}
	for x := 0; x <= w; x++ {
		lines = append(lines, Line{X1: float64(x), Y1: 0, X2: float64(x), Y2: float64(h)})
	}
	return lines
}

// Renderer 是场景图绘制端的窄接口。
// Session 只通过它创建/销毁单元格图形，句柄表由 Session 自己维护。
type Renderer interface {
	DrawGrid(width, height int, lines []Line, stroke Stroke)
	CreateCell(c domain.Cell, color domain.Color) Handle
	DestroyCell(h Handle)
}

// NopRenderer 只分配递增句柄，不绘制任何东西。用于离线处理和测试。
type NopRenderer struct {
	next Handle
}

func (r *NopRenderer) DrawGrid(int, int, []Line, Stroke) {}

func (r *NopRenderer) CreateCell(domain.Cell, domain.Color) Handle {
	r.next++
	return r.next
}

func (r *NopRenderer) DestroyCell(Handle) {}
