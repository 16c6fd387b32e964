// Package hub 管理画板的实时编辑会话：每个有连接的画板对应一个 room，
// room 在自己的 goroutine 中持有 grid.Session 并按顺序处理命令。
package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/grid"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. load_points 消息携带整个 points 文档。
	maxMessageSize = 4 << 20

	// room 收件箱和客户端发送队列的容量
	inboxSize = 256
	sendSize  = 1024

	// 单条命令的存储操作超时
	commandTimeout = 10 * time.Second
)

// ErrHubClosed 表示 Hub 已停止，不再接受连接。
var ErrHubClosed = errors.New("hub is closed")

// ErrRoomClosed 表示画板会话在请求处理前已经结束，可以重试。
var ErrRoomClosed = errors.New("board session closed, retry")

// Editor 是 room 用到的画板状态服务，由 service.EditorService 实现。
type Editor interface {
	LoadState(ctx context.Context, board *domain.Board) (map[domain.Cell]domain.Color, error)
	RecordChanges(ctx context.Context, boardID, userID uint, changes []grid.Change) error
	ReplaceState(ctx context.Context, boardID, userID uint, doc *domain.PointsDocument, changes []grid.Change) error
	ImportOffline(ctx context.Context, board *domain.Board, userID uint, doc *domain.PointsDocument) error
}

// BoardToucher 更新画板最后活跃时间，由 service.BoardService 实现。
type BoardToucher interface {
	Touch(ctx context.Context, boardID uint)
}

// Hub 维护 boardID -> room 的映射。
type Hub struct {
	rooms   map[uint]*room
	roomsMu sync.RWMutex
	closed  bool

	editor  Editor
	boards  BoardToucher
	options grid.Options
	log     *logrus.Entry
}

// NewHub 创建 Hub。options 中的 Width/Height 会被每个画板的尺寸覆盖。
func NewHub(editor Editor, boards BoardToucher, options grid.Options) *Hub {
	if editor == nil {
		panic("Editor cannot be nil for Hub")
	}
	if boards == nil {
		panic("BoardToucher cannot be nil for Hub")
	}
	return &Hub{
		rooms:   make(map[uint]*room),
		editor:  editor,
		boards:  boards,
		options: options,
		log:     logrus.WithField("component", "hub"),
	}
}

// Run 阻塞直到 ctx 结束，然后关闭所有 room。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Hub is running...")
	<-ctx.Done()
	h.Shutdown()
}

// Shutdown 停止接受连接并关闭所有 room，room 会关闭其客户端的发送队列。
func (h *Hub) Shutdown() {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, r := range h.rooms {
		delete(h.rooms, id)
		close(r.quit)
	}
	h.log.Info("Hub is shutting down...")
}

// Register 将客户端加入其画板的 room，room 不存在时创建。
func (h *Hub) Register(client *Client) error {
	if client == nil {
		return errors.New("cannot register nil client")
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"board_id": client.BoardID(),
		"user_id":  client.UserID(),
		"action":   "registerClient",
	})

	h.roomsMu.Lock()
	if h.closed {
		h.roomsMu.Unlock()
		return ErrHubClosed
	}
	r, ok := h.rooms[client.BoardID()]
	if !ok {
		r = newRoom(h, client.board)
		h.rooms[client.BoardID()] = r
		go r.run()
		logCtx.Info("Room created for board")
	}
	r.members[client] = struct{}{}
	connections := len(r.members)
	h.roomsMu.Unlock()

	// 在锁外投递：一个 room 的收件箱满了只阻塞本次注册
	if !r.post(roomEvent{kind: eventJoin, client: client}) {
		return ErrHubClosed
	}
	logCtx.WithField("connections", connections).Info("Client registered to Hub")
	return nil
}

// Unregister 将客户端移出 room。最后一个客户端离开时 room 结束，状态保留在 Redis 中。
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"board_id": client.BoardID(),
		"user_id":  client.UserID(),
		"action":   "unregisterClient",
	})

	h.roomsMu.Lock()
	r, ok := h.rooms[client.BoardID()]
	if !ok {
		h.roomsMu.Unlock()
		logCtx.Debug("Room not found during client unregister")
		return
	}
	if _, member := r.members[client]; !member {
		h.roomsMu.Unlock()
		return
	}
	delete(r.members, client)
	last := len(r.members) == 0
	if last {
		delete(h.rooms, client.BoardID())
	}
	h.roomsMu.Unlock()

	r.post(roomEvent{kind: eventLeave, client: client})
	if last {
		// 只有把 room 移出映射的一方关闭 quit
		close(r.quit)
		logCtx.Info("Room empty, removed from Hub")
	}
	logCtx.Info("Client unregistered from Hub")
}

// Dispatch 将客户端的原始消息投递到 room (非阻塞)。返回 false 表示消息被丢弃。
func (h *Hub) Dispatch(client *Client, raw []byte) bool {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	r, ok := h.rooms[client.BoardID()]
	if !ok {
		return false
	}
	if _, member := r.members[client]; !member {
		return false
	}
	select {
	case r.inbox <- roomEvent{kind: eventCommand, client: client, userID: client.UserID(), raw: raw}:
		return true
	default:
		h.log.WithFields(logrus.Fields{
			"board_id": client.BoardID(),
			"user_id":  client.UserID(),
		}).Warn("Room inbox full, dropping client message")
		return false
	}
}

// ImportDocument 用 doc 替换画板内容。
// 画板有活跃 room 时交给 room 执行并推送给所有连接，否则直接写入存储。
func (h *Hub) ImportDocument(ctx context.Context, board *domain.Board, userID uint, doc *domain.PointsDocument) error {
	reply := make(chan error, 1)

	h.roomsMu.RLock()
	r, ok := h.rooms[board.ID]
	if !ok {
		// 持有读锁期间不会有新 room 创建，避免与 room 的状态加载交错
		err := h.editor.ImportOffline(ctx, board, userID, doc)
		h.roomsMu.RUnlock()
		return err
	}
	h.roomsMu.RUnlock()

	select {
	case r.inbox <- roomEvent{kind: eventImport, userID: userID, doc: doc, reply: reply}:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-r.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetActiveBoardIDs 返回当前有连接的画板 ID。
func (h *Hub) GetActiveBoardIDs() []uint {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	ids := make([]uint, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// sessionOptions 返回某个画板的会话参数。
func (h *Hub) sessionOptions(board *domain.Board) grid.Options {
	opts := h.options
	opts.Width = board.Width
	opts.Height = board.Height
	opts.Log = logrus.WithFields(logrus.Fields{"component": "grid", "board_id": board.ID})
	return opts
}
