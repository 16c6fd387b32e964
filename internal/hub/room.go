package hub

import (
	"context"
	"encoding/json"
	"errors"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/dto"
	"pixelgrid/internal/grid"

	"github.com/sirupsen/logrus"
)

// ErrStateUnavailable 表示画板状态尚未成功加载，编辑被拒绝。
var ErrStateUnavailable = errors.New("board state unavailable")

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventCommand
	eventImport
)

type roomEvent struct {
	kind   eventKind
	client *Client
	userID uint
	raw    []byte
	doc    *domain.PointsDocument
	reply  chan<- error
}

// room 是一个画板的编辑会话。session 和 clients 只在 run goroutine 中访问；
// members 由 Hub 在 roomsMu 保护下维护。
// inbox 从不关闭：Hub 关闭 quit 通知 room 结束，room 处理完已入队的事件后关闭 done。
type room struct {
	hub   *Hub
	board *domain.Board
	inbox chan roomEvent
	quit  chan struct{}
	done  chan struct{}

	members map[*Client]struct{}

	clients    map[*Client]struct{}
	session    *grid.Session
	recorder   *opRecorder
	dispatcher *grid.Dispatcher
	ready      bool
	log        *logrus.Entry
}

func newRoom(h *Hub, board *domain.Board) *room {
	return &room{
		hub:        h,
		board:      board,
		inbox:      make(chan roomEvent, inboxSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		members:    make(map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		recorder:   &opRecorder{},
		dispatcher: grid.NewDispatcher(),
		log:        logrus.WithFields(logrus.Fields{"component": "room", "board_id": board.ID}),
	}
}

func (r *room) run() {
	defer close(r.done)
	r.log.Info("Room started")
	for {
		select {
		case ev := <-r.inbox:
			r.handle(ev)
		case <-r.quit:
			r.drain()
			for c := range r.clients {
				close(c.send)
				delete(r.clients, c)
			}
			r.log.Info("Room stopped")
			return
		}
	}
}

// drain 处理 quit 之前已入队的事件。
func (r *room) drain() {
	for {
		select {
		case ev := <-r.inbox:
			r.handle(ev)
		default:
			return
		}
	}
}

func (r *room) handle(ev roomEvent) {
	switch ev.kind {
	case eventJoin:
		r.join(ev.client)
	case eventLeave:
		r.leave(ev.client)
	case eventCommand:
		r.handleCommand(ev.client, ev.raw)
	case eventImport:
		ev.reply <- r.apply(ev.userID, grid.Command{Kind: grid.CmdLoadPoints, Document: ev.doc})
	}
}

// post 阻塞投递事件，room 已结束时返回 false。
func (r *room) post(ev roomEvent) bool {
	select {
	case r.inbox <- ev:
		return true
	case <-r.done:
		return false
	}
}

// load 从存储恢复画板状态并绘制网格。失败时 room 保持只读，下次有客户端加入时重试。
func (r *room) load() error {
	if r.ready {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cells, err := r.hub.editor.LoadState(ctx, r.board)
	if err != nil {
		r.log.WithError(err).Error("Failed to load board state")
		return ErrStateUnavailable
	}
	r.recorder = &opRecorder{}
	session, err := grid.NewSession(r.hub.sessionOptions(r.board), r.recorder)
	if err != nil {
		r.log.WithError(err).Error("Failed to create editing session")
		return ErrStateUnavailable
	}
	session.Load(cells)
	session.DrawGrid()
	r.recorder.reset()
	r.session = session
	r.ready = true
	r.log.WithField("cells", len(cells)).Info("Board state loaded into room")
	return nil
}

// join 向新连接发送完整的初始画面。
func (r *room) join(c *Client) {
	r.clients[c] = struct{}{}
	r.hub.boards.Touch(context.Background(), r.board.ID)

	if err := r.load(); err != nil {
		r.send(c, dto.NewErrorMessage(err.Error()))
		return
	}
	if r.recorder.gridMsg != nil {
		r.send(c, *r.recorder.gridMsg)
	}
	for rc := range r.session.Rendered() {
		r.send(c, dto.NewCellAddMessage(rc.Handle, rc.Cell, rc.Color))
	}
	r.send(c, dto.NewViewportMessage(r.session.Transform(), false))
	r.send(c, dto.NewToolMessage(r.session.Tool(), r.session.Color()))
	r.send(c, dto.NewStatusMessage(r.session.Status()))
}

func (r *room) leave(c *Client) {
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	close(c.send)
	if len(r.clients) == 0 {
		r.hub.boards.Touch(context.Background(), r.board.ID)
	}
}

func (r *room) handleCommand(c *Client, raw []byte) {
	if _, ok := r.clients[c]; !ok {
		return
	}
	logCtx := r.log.WithField("user_id", c.UserID())

	cmd, err := dto.ParseInbound(raw)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to parse client message")
		r.send(c, dto.NewErrorMessage(err.Error()))
		return
	}
	if err := r.apply(c.UserID(), cmd); err != nil {
		logCtx.WithError(err).WithField("command", cmd.Kind).Warn("Command failed")
		r.send(c, dto.NewErrorMessage(err.Error()))
	}
}

// apply 执行一条命令：更新会话，持久化单元格变更，然后广播结果。
// 持久化失败时撤销会话中的变更，广播中包含变更及其撤销。
func (r *room) apply(userID uint, cmd grid.Command) error {
	if !r.ready {
		return ErrStateUnavailable
	}
	r.recorder.reset()
	res, err := r.dispatcher.Dispatch(r.session, cmd)
	if err != nil {
		return err
	}

	var persistErr error
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	switch {
	case cmd.Kind == grid.CmdLoadPoints:
		persistErr = r.hub.editor.ReplaceState(ctx, r.board.ID, userID, r.session.Export(), res.Changes)
	case len(res.Changes) > 0:
		persistErr = r.hub.editor.RecordChanges(ctx, r.board.ID, userID, res.Changes)
	}
	if persistErr != nil {
		r.log.WithError(persistErr).WithFields(logrus.Fields{
			"user_id": userID,
			"command": cmd.Kind,
			"changes": len(res.Changes),
		}).Error("Failed to persist board changes, reverting session")
		// 会话必须与 Redis 一致，否则导出和下次加载会丢失这些单元格
		r.session.Revert(res.Changes)
	}

	r.broadcast(r.resultMessages(res))
	return persistErr
}

// resultMessages 汇总一条命令产生的推送消息。
func (r *room) resultMessages(res grid.Result) []any {
	grouped := len(res.Changes) > 0 && res.Changes[0].Kind == grid.ChangeClear
	msgs := r.recorder.messages(grouped)
	if res.ViewportChanged {
		msgs = append(msgs, dto.NewViewportMessage(r.session.Transform(), res.Clamped))
	}
	if res.ToolChanged {
		msgs = append(msgs, dto.NewToolMessage(r.session.Tool(), r.session.Color()))
	}
	if res.StatusChanged {
		msgs = append(msgs, dto.NewStatusMessage(r.session.Status()))
	}
	return msgs
}

func (r *room) broadcast(msgs []any) {
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			r.log.WithError(err).Error("Failed to marshal broadcast message")
			continue
		}
		for c := range r.clients {
			r.deliver(c, data)
		}
	}
}

func (r *room) send(c *Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.WithError(err).Error("Failed to marshal message")
		return
	}
	r.deliver(c, data)
}

// deliver 非阻塞写入客户端发送队列，队列满时丢弃。
func (r *room) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		r.log.WithField("user_id", c.UserID()).Warn("Client send channel full, dropping message")
	}
}
