package grid

import (
	"errors"
	"fmt"

	"pixelgrid/internal/domain"
)

// CommandKind 是编辑命令的类型。
type CommandKind string

const (
	CmdPointerDown CommandKind = "pointer_down"
	CmdPointerMove CommandKind = "pointer_move"
	CmdPointerUp   CommandKind = "pointer_up"
	CmdWheel       CommandKind = "wheel"
	CmdKey         CommandKind = "key"
	CmdTool        CommandKind = "tool"
	CmdColor       CommandKind = "color"
	CmdZoomIn      CommandKind = "zoom_in"
	CmdZoomOut     CommandKind = "zoom_out"
	CmdClear       CommandKind = "clear"
	CmdLoadPoints  CommandKind = "load_points"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command 是一次编辑输入。按 Kind 只使用相关字段。
type Command struct {
	Kind     CommandKind
	Point    Point   // pointer_*
	DeltaX   float64 // wheel
	DeltaY   float64 // wheel
	Key      string  // key
	Tool     Tool    // tool
	Color    domain.Color
	Document *domain.PointsDocument // load_points
}

// Result 汇总命令的效果，调用方据此决定持久化哪些变更、推送哪些消息。
type Result struct {
	Changes         []Change
	ViewportChanged bool
	ToolChanged     bool
	StatusChanged   bool
	Clamped         bool
}

// Handler 处理一种命令。
type Handler func(s *Session, cmd Command) (Result, error)

// Dispatcher 是命令类型到处理函数的注册表。
type Dispatcher struct {
	handlers map[CommandKind]Handler
}

// NewDispatcher 创建注册了全部内置命令的分发器。
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[CommandKind]Handler)}
	d.Register(CmdPointerDown, handlePointerDown)
	d.Register(CmdPointerMove, handlePointerMove)
	d.Register(CmdPointerUp, handlePointerUp)
	d.Register(CmdWheel, handleWheel)
	d.Register(CmdKey, handleKey)
	d.Register(CmdTool, handleTool)
	d.Register(CmdColor, handleColor)
	d.Register(CmdZoomIn, handleZoom(true))
	d.Register(CmdZoomOut, handleZoom(false))
	d.Register(CmdClear, handleClear)
	d.Register(CmdLoadPoints, handleLoadPoints)
	return d
}

// Register 注册或替换某种命令的处理函数。
func (d *Dispatcher) Register(kind CommandKind, h Handler) {
	d.handlers[kind] = h
}

// Dispatch 将命令交给对应的处理函数。
func (d *Dispatcher) Dispatch(s *Session, cmd Command) (Result, error) {
	h, ok := d.handlers[cmd.Kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	return h(s, cmd)
}

func handlePointerDown(s *Session, cmd Command) (Result, error) {
	return Result{Changes: s.PointerDown(cmd.Point), StatusChanged: true}, nil
}

func handlePointerMove(s *Session, cmd Command) (Result, error) {
	before := s.Status().Cell
	changes := s.PointerMove(cmd.Point)
	return Result{Changes: changes, StatusChanged: s.Status().Cell != before}, nil
}

func handlePointerUp(s *Session, _ Command) (Result, error) {
	s.PointerUp()
	return Result{}, nil
}

func handleWheel(s *Session, cmd Command) (Result, error) {
	return Result{ViewportChanged: s.Wheel(cmd.DeltaX, cmd.DeltaY)}, nil
}

func handleKey(s *Session, cmd Command) (Result, error) {
	return Result{ViewportChanged: s.Key(cmd.Key)}, nil
}

func handleTool(s *Session, cmd Command) (Result, error) {
	if err := s.SelectTool(cmd.Tool); err != nil {
		return Result{}, err
	}
	return Result{ToolChanged: true}, nil
}

func handleColor(s *Session, cmd Command) (Result, error) {
	if err := s.SelectColor(cmd.Color); err != nil {
		return Result{}, err
	}
	return Result{ToolChanged: true}, nil
}

func handleZoom(in bool) Handler {
	return func(s *Session, _ Command) (Result, error) {
		var clamped bool
		if in {
			clamped = s.ZoomIn()
		} else {
			clamped = s.ZoomOut()
		}
		return Result{ViewportChanged: true, StatusChanged: true, Clamped: clamped}, nil
	}
}

func handleClear(s *Session, _ Command) (Result, error) {
	return Result{Changes: s.Clear()}, nil
}

func handleLoadPoints(s *Session, cmd Command) (Result, error) {
	changes, err := s.Replace(cmd.Document)
	if err != nil {
		return Result{}, err
	}
	return Result{Changes: changes}, nil
}
