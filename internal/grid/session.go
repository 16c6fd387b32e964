package grid

import (
	"errors"
	"fmt"
	"iter"

	"pixelgrid/internal/domain"

	"github.com/sirupsen/logrus"
)

// Options 是一个编辑会话的可调参数。
type Options struct {
	Width        int // 网格宽度 (单元格)
	Height       int // 网格高度 (单元格)
	MoveSpeed    float64
	ZoomStep     float64
	MinScale     float64
	MaxScale     float64
	DefaultColor domain.Color
	Log          *logrus.Entry
}

// DefaultOptions 返回默认值：方向键平移 10，缩放步长 1。
func DefaultOptions() Options {
	return Options{
		MoveSpeed:    10,
		ZoomStep:     1,
		MinScale:     DefaultMinScale,
		MaxScale:     DefaultMaxScale,
		DefaultColor: domain.DefaultColor,
	}
}

// ChangeKind 是单元格存储变更的种类。
type ChangeKind int

const (
	ChangePaint ChangeKind = iota
	ChangeErase
	ChangeClear
)

// ActionType 返回对应的持久化操作类型。
func (k ChangeKind) ActionType() domain.ActionType {
	switch k {
	case ChangePaint:
		return domain.ActionPaint
	case ChangeErase:
		return domain.ActionErase
	default:
		return domain.ActionClear
	}
}

func (k ChangeKind) String() string { return string(k.ActionType()) }

// Change 描述一次已生效的存储变更，由调用方负责持久化和广播。
type Change struct {
	Kind    ChangeKind
	Cell    domain.Cell  // paint / erase
	Color   domain.Color // paint 的新颜色，erase 时被删除的颜色
	Count   int          // clear 时被清除的单元格数
	Removed []Entry      // clear 时被清除的条目，用于 Revert
}

// Status 是状态栏内容：指针所在单元格与当前缩放。
type Status struct {
	Cell  domain.Cell `json:"-"`
	Text  string      `json:"cell"`
	Scale float64     `json:"scale"`
}

// RenderedCell 是一个已涂色单元格及其渲染句柄。
type RenderedCell struct {
	Handle Handle
	Cell   domain.Cell
	Color  domain.Color
}

// Session 是一个画板的编辑会话：单元格存储、视口、工具选择、拖动标志和渲染句柄表。
// Session 不是并发安全的，调用方保证同一时间只有一个 goroutine 使用它。
type Session struct {
	opts     Options
	store    *Store
	viewport *Viewport
	renderer Renderer
	handles  map[domain.Cell]Handle

	tool      Tool
	color     domain.Color
	dragging  bool
	pointer   domain.Cell
	gridDrawn bool
	log       *logrus.Entry
}

// NewSession 创建会话。r 为 nil 时使用 NopRenderer。
func NewSession(opts Options, r Renderer) (*Session, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("invalid grid bounds %dx%d", opts.Width, opts.Height)
	}
	defaults := DefaultOptions()
	if opts.MoveSpeed == 0 {
		opts.MoveSpeed = defaults.MoveSpeed
	}
	if opts.ZoomStep == 0 {
		opts.ZoomStep = defaults.ZoomStep
	}
	if opts.MinScale == 0 {
		opts.MinScale = defaults.MinScale
	}
	if opts.MaxScale == 0 {
		opts.MaxScale = defaults.MaxScale
	}
	if opts.DefaultColor == "" {
		opts.DefaultColor = defaults.DefaultColor
	}
	if opts.Log == nil {
		opts.Log = logrus.WithField("component", "grid")
	}
	viewport, err := NewViewport(opts.MinScale, opts.MaxScale)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = &NopRenderer{}
	}
	return &Session{
		opts:     opts,
		store:    NewStore(),
		viewport: viewport,
		renderer: r,
		handles:  make(map[domain.Cell]Handle),
		tool:     Pen,
		color:    opts.DefaultColor,
		log:      opts.Log,
	}, nil
}

// Bounds 返回网格尺寸 (单元格)。
func (s *Session) Bounds() (width, height int) { return s.opts.Width, s.opts.Height }

func (s *Session) Tool() Tool               { return s.tool }
func (s *Session) Color() domain.Color      { return s.color }
func (s *Session) Dragging() bool           { return s.dragging }
func (s *Session) Transform() Transform     { return s.viewport.Transform() }
func (s *Session) Len() int                 { return s.store.Len() }
func (s *Session) Has(c domain.Cell) bool   { return s.store.Has(c) }
func (s *Session) Entries() iter.Seq[Entry] { return s.store.Entries() }

// Status 返回当前状态栏内容。
func (s *Session) Status() Status {
	return Status{Cell: s.pointer, Text: s.pointer.String(), Scale: s.viewport.Scale()}
}

// DrawGrid 在尺寸确定后绘制网格线，只绘制一次。
func (s *Session) DrawGrid() {
	if s.gridDrawn {
		return
	}
	s.renderer.DrawGrid(s.opts.Width, s.opts.Height, GridLines(s.opts.Width, s.opts.Height), GridStroke)
	s.gridDrawn = true
}

// Load 用已持久化的状态填充存储，不产生 Change。用于会话恢复。
func (s *Session) Load(cells map[domain.Cell]domain.Color) {
	for cell, color := range cells {
		s.put(cell, color)
	}
}

// SelectTool 切换工具。没有自动切换。
func (s *Session) SelectTool(t Tool) error {
	if t != Pen && t != Eraser {
		return fmt.Errorf("unknown tool %s", t)
	}
	s.tool = t
	return nil
}

// SelectColor 切换画笔颜色，只影响之后的涂色。
func (s *Session) SelectColor(c domain.Color) error {
	parsed, err := domain.ParseColor(string(c))
	if err != nil {
		return err
	}
	s.color = parsed
	return nil
}

// PointerDown 开始拖动并在指针位置应用当前工具。
func (s *Session) PointerDown(p Point) []Change {
	s.dragging = true
	s.pointer = ToCell(p, s.viewport.Transform())
	return s.applyTool(s.pointer)
}

// PointerMove 更新状态栏坐标；拖动中则在新位置再次应用工具，形成轨迹。
func (s *Session) PointerMove(p Point) []Change {
	s.pointer = ToCell(p, s.viewport.Transform())
	if !s.dragging {
		return nil
	}
	return s.applyTool(s.pointer)
}

// PointerUp 结束拖动。
func (s *Session) PointerUp() {
	s.dragging = false
}

// applyTool 是画笔/橡皮的单元格规则：
// 画笔仅在空单元格上涂色 (拖过已涂色单元格是空操作)，橡皮仅删除已涂色单元格。
func (s *Session) applyTool(c domain.Cell) []Change {
	switch s.tool {
	case Pen:
		if change, ok := s.Paint(c, s.color); ok {
			return []Change{change}
		}
	case Eraser:
		if change, ok := s.Erase(c); ok {
			return []Change{change}
		}
	}
	return nil
}

// Paint 在空单元格 c 上涂色。已涂色时不覆盖，返回 false。
func (s *Session) Paint(c domain.Cell, color domain.Color) (Change, bool) {
	if s.store.Has(c) {
		return Change{}, false
	}
	s.put(c, color)
	return Change{Kind: ChangePaint, Cell: c, Color: color}, true
}

// Erase 删除已涂色单元格 c。未涂色时是空操作。
func (s *Session) Erase(c domain.Cell) (Change, bool) {
	color, ok := s.store.Get(c)
	if !ok {
		return Change{}, false
	}
	s.store.Remove(c)
	if h, ok := s.handles[c]; ok {
		s.renderer.DestroyCell(h)
		delete(s.handles, c)
	}
	return Change{Kind: ChangeErase, Cell: c, Color: color}, true
}

// Clear 清空存储并释放所有渲染句柄。存储本来为空时不产生 Change。
func (s *Session) Clear() []Change {
	for cell, h := range s.handles {
		s.renderer.DestroyCell(h)
		delete(s.handles, cell)
	}
	removed := make([]Entry, 0, s.store.Len())
	for e := range s.store.Entries() {
		removed = append(removed, e)
	}
	n := s.store.Clear()
	if n == 0 {
		return nil
	}
	return []Change{{Kind: ChangeClear, Count: n, Removed: removed}}
}

// Revert 按逆序撤销 changes，使存储回到产生这些变更之前的内容。
// 用于变更无法持久化时回滚会话；撤销同样经过 Renderer。
func (s *Session) Revert(changes []Change) {
	for i := len(changes) - 1; i >= 0; i-- {
		change := changes[i]
		switch change.Kind {
		case ChangePaint:
			s.Erase(change.Cell)
		case ChangeErase:
			s.put(change.Cell, change.Color)
		case ChangeClear:
			for _, e := range change.Removed {
				s.put(e.Cell, e.Color)
			}
		}
	}
}

// Replace 用 points 文档替换全部内容：先清空，再按文档顺序涂色。
func (s *Session) Replace(doc *domain.PointsDocument) ([]Change, error) {
	if doc == nil {
		return nil, errors.New("nil points document")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	changes := s.Clear()
	doc.Sort()
	for color, pairs := range doc.Points {
		for _, p := range pairs {
			if change, ok := s.Paint(domain.Cell{X: p[0], Y: p[1]}, color); ok {
				changes = append(changes, change)
			}
		}
	}
	return changes, nil
}

// Export 生成当前内容的 points 文档。
func (s *Session) Export() *domain.PointsDocument {
	doc := domain.NewPointsDocument(s.opts.Width, s.opts.Height)
	for e := range s.store.Entries() {
		doc.Add(e.Cell, e.Color)
	}
	doc.Sort()
	return doc
}

// Rendered 枚举所有已涂色单元格及其句柄，用于新连接的初始同步。
func (s *Session) Rendered() iter.Seq[RenderedCell] {
	return func(yield func(RenderedCell) bool) {
		for e := range s.store.Entries() {
			if !yield(RenderedCell{Handle: s.handles[e.Cell], Cell: e.Cell, Color: e.Color}) {
				return
			}
		}
	}
}

// Pan 平移视口。
func (s *Session) Pan(dx, dy float64) bool {
	return s.viewport.Pan(dx, dy)
}

// Wheel 处理滚轮事件：取反后平移，内容跟随手势方向。
func (s *Session) Wheel(deltaX, deltaY float64) bool {
	return s.viewport.Pan(-deltaX, -deltaY)
}

// Key 处理方向键，按固定步长平移。返回是否识别该按键。
func (s *Session) Key(key string) bool {
	step := s.opts.MoveSpeed
	switch key {
	case "ArrowUp":
		s.viewport.Pan(0, step)
	case "ArrowDown":
		s.viewport.Pan(0, -step)
	case "ArrowLeft":
		s.viewport.Pan(step, 0)
	case "ArrowRight":
		s.viewport.Pan(-step, 0)
	default:
		return false
	}
	return true
}

// ZoomIn 按步长放大，返回是否被钳制。
func (s *Session) ZoomIn() bool { return s.ZoomBy(s.opts.ZoomStep) }

// ZoomOut 按步长缩小，返回是否被钳制。
func (s *Session) ZoomOut() bool { return s.ZoomBy(-s.opts.ZoomStep) }

// ZoomBy 调整缩放。被钳制时记录警告。
func (s *Session) ZoomBy(delta float64) bool {
	clamped := s.viewport.ZoomBy(delta)
	if clamped {
		s.log.WithFields(logrus.Fields{
			"delta": delta,
			"scale": s.viewport.Scale(),
			"min":   s.opts.MinScale,
			"max":   s.opts.MaxScale,
		}).Warn("Zoom clamped to scale bounds")
	}
	return clamped
}

func (s *Session) put(c domain.Cell, color domain.Color) {
	if h, ok := s.handles[c]; ok {
		s.renderer.DestroyCell(h)
	}
	s.store.Put(c, color)
	s.handles[c] = s.renderer.CreateCell(c, color)
}
