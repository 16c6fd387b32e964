// Package dto 定义 WebSocket 消息和 HTTP 请求/响应的数据结构。
package dto

import (
	"encoding/json"
	"errors"
	"fmt"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/grid"
)

// ErrInvalidMessage 表示无法解析的客户端消息。
var ErrInvalidMessage = errors.New("invalid message")

// InboundMessage 是客户端发来的一条编辑消息，按 Type 使用相关字段。
//
//	{"type":"pointer_down","x":120.5,"y":33}
//	{"type":"wheel","deltaX":0,"deltaY":-40}
//	{"type":"key","key":"ArrowUp"}
//	{"type":"tool","tool":"eraser"}
//	{"type":"color","color":"#00ff00"}
//	{"type":"load_points","document":{...}}
type InboundMessage struct {
	Type     string          `json:"type"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	DeltaX   float64         `json:"deltaX"`
	DeltaY   float64         `json:"deltaY"`
	Key      string          `json:"key"`
	Tool     string          `json:"tool"`
	Color    string          `json:"color"`
	Document json.RawMessage `json:"document"`
}

// 页面自定义事件名到命令的别名
var eventAliases = map[string]grid.Command{
	"pen":    {Kind: grid.CmdTool, Tool: grid.Pen},
	"eraser": {Kind: grid.CmdTool, Tool: grid.Eraser},
	"z+":     {Kind: grid.CmdZoomIn},
	"z-":     {Kind: grid.CmdZoomOut},
}

// ParseInbound 将原始消息解析为编辑命令。
func ParseInbound(raw []byte) (grid.Command, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return grid.Command{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg.Command()
}

// Command 将消息转换为 grid.Command。
func (m InboundMessage) Command() (grid.Command, error) {
	if cmd, ok := eventAliases[m.Type]; ok {
		return cmd, nil
	}

	cmd := grid.Command{Kind: grid.CommandKind(m.Type)}
	switch cmd.Kind {
	case grid.CmdPointerDown, grid.CmdPointerMove, grid.CmdPointerUp:
		cmd.Point = grid.Point{X: m.X, Y: m.Y}
	case grid.CmdWheel:
		cmd.DeltaX, cmd.DeltaY = m.DeltaX, m.DeltaY
	case grid.CmdKey:
		cmd.Key = m.Key
	case grid.CmdTool:
		tool, err := grid.ParseTool(m.Tool)
		if err != nil {
			return grid.Command{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		cmd.Tool = tool
	case grid.CmdColor:
		color, err := domain.ParseColor(m.Color)
		if err != nil {
			return grid.Command{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		cmd.Color = color
	case grid.CmdLoadPoints:
		if len(m.Document) == 0 {
			return grid.Command{}, fmt.Errorf("%w: load_points without document", ErrInvalidMessage)
		}
		doc, err := domain.ParsePointsDocument(m.Document)
		if err != nil {
			return grid.Command{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		cmd.Document = doc
	case grid.CmdZoomIn, grid.CmdZoomOut, grid.CmdClear:
	case "":
		return grid.Command{}, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	default:
		return grid.Command{}, fmt.Errorf("%w: %q", grid.ErrUnknownCommand, m.Type)
	}
	return cmd, nil
}

// 服务端推送的消息类型
const (
	TypeGrid       = "grid"
	TypeCellAdd    = "cell_add"
	TypeCellRemove = "cell_remove"
	TypeClear      = "clear"
	TypeViewport   = "viewport"
	TypeStatus     = "status"
	TypeTool       = "tool"
	TypeError      = "error"
)

// GridMessage 网格边界确定后发送一次，包含全部网格线。
type GridMessage struct {
	Type   string      `json:"type"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Lines  []grid.Line `json:"lines"`
	Stroke grid.Stroke `json:"stroke"`
}

// CellAddMessage 创建一个 1x1 的单元格图形。
type CellAddMessage struct {
	Type   string       `json:"type"`
	Handle grid.Handle  `json:"handle"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Color  domain.Color `json:"color"`
}

// CellRemoveMessage 销毁一个单元格图形。
type CellRemoveMessage struct {
	Type   string      `json:"type"`
	Handle grid.Handle `json:"handle"`
}

// ClearMessage 一次性销毁多个单元格图形。
type ClearMessage struct {
	Type    string        `json:"type"`
	Handles []grid.Handle `json:"handles"`
}

// ViewportMessage 是视口变换。Clamped 表示本次缩放被限制在边界上。
type ViewportMessage struct {
	Type    string  `json:"type"`
	DX      float64 `json:"dx"`
	DY      float64 `json:"dy"`
	Scale   float64 `json:"scale"`
	Clamped bool    `json:"clamped,omitempty"`
}

// StatusMessage 是状态栏内容，Cell 形如 "(x, y)"。
type StatusMessage struct {
	Type  string  `json:"type"`
	Cell  string  `json:"cell"`
	Scale float64 `json:"scale"`
}

// ToolMessage 是当前工具和画笔颜色。
type ToolMessage struct {
	Type  string       `json:"type"`
	Tool  grid.Tool    `json:"tool"`
	Color domain.Color `json:"color"`
}

// ErrorMessage 通知客户端一条命令失败。
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewGridMessage(width, height int, lines []grid.Line, stroke grid.Stroke) GridMessage {
	return GridMessage{Type: TypeGrid, Width: width, Height: height, Lines: lines, Stroke: stroke}
}

func NewCellAddMessage(h grid.Handle, c domain.Cell, color domain.Color) CellAddMessage {
	return CellAddMessage{Type: TypeCellAdd, Handle: h, X: c.X, Y: c.Y, Color: color}
}

func NewCellRemoveMessage(h grid.Handle) CellRemoveMessage {
	return CellRemoveMessage{Type: TypeCellRemove, Handle: h}
}

func NewClearMessage(handles []grid.Handle) ClearMessage {
	if handles == nil {
		handles = []grid.Handle{}
	}
	return ClearMessage{Type: TypeClear, Handles: handles}
}

func NewViewportMessage(t grid.Transform, clamped bool) ViewportMessage {
	return ViewportMessage{Type: TypeViewport, DX: t.DX, DY: t.DY, Scale: t.Scale, Clamped: clamped}
}

func NewStatusMessage(s grid.Status) StatusMessage {
	return StatusMessage{Type: TypeStatus, Cell: s.Text, Scale: s.Scale}
}

func NewToolMessage(tool grid.Tool, color domain.Color) ToolMessage {
	return ToolMessage{Type: TypeTool, Tool: tool, Color: color}
}

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}
