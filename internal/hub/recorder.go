package hub

import (
	"pixelgrid/internal/domain"
	"pixelgrid/internal/dto"
	"pixelgrid/internal/grid"
)

type renderOp struct {
	add    bool
	handle grid.Handle
	cell   domain.Cell
	color  domain.Color
}

// opRecorder 是 room 会话的 grid.Renderer：分配句柄并记录绘制操作，
// 由 room 将其转换为推送给浏览器的消息。
type opRecorder struct {
	next    grid.Handle
	ops     []renderOp
	gridMsg *dto.GridMessage
}

func (r *opRecorder) DrawGrid(width, height int, lines []grid.Line, stroke grid.Stroke) {
	msg := dto.NewGridMessage(width, height, lines, stroke)
	r.gridMsg = &msg
}

func (r *opRecorder) CreateCell(c domain.Cell, color domain.Color) grid.Handle {
	r.next++
	r.ops = append(r.ops, renderOp{add: true, handle: r.next, cell: c, color: color})
	return r.next
}

func (r *opRecorder) DestroyCell(h grid.Handle) {
	r.ops = append(r.ops, renderOp{handle: h})
}

// reset 丢弃已记录的操作。
func (r *opRecorder) reset() {
	r.ops = r.ops[:0]
}

// messages 将记录的操作转换为消息。grouped 为 true 时 (清空画板)
// 开头连续的销毁操作合并为一条 clear 消息。
func (r *opRecorder) messages(grouped bool) []any {
	msgs := make([]any, 0, len(r.ops))
	i := 0
	if grouped {
		var handles []grid.Handle
		for ; i < len(r.ops) && !r.ops[i].add; i++ {
			handles = append(handles, r.ops[i].handle)
		}
		msgs = append(msgs, dto.NewClearMessage(handles))
	}
	for _, op := range r.ops[i:] {
		if op.add {
			msgs = append(msgs, dto.NewCellAddMessage(op.handle, op.cell, op.color))
		} else {
			msgs = append(msgs, dto.NewCellRemoveMessage(op.handle))
		}
	}
	return msgs
}
