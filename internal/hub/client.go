package hub

import (
	"time"

	"pixelgrid/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
type Client struct {
	hub    *Hub            // 指向其所属的 Hub
	conn   *websocket.Conn // WebSocket 连接
	board  *domain.Board   // 客户端正在编辑的画板
	userID uint            // 客户端的用户 ID
	send   chan []byte     // 发送队列，只由 room 写入和关闭
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, board *domain.Board, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		board:  board,
		userID: userID,
		send:   make(chan []byte, sendSize),
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) BoardID() uint { return c.board.ID }
func (c *Client) UserID() uint  { return c.userID }

func (c *Client) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"user_id": c.userID, "board_id": c.board.ID})
}

// ReadPump 将消息从 WebSocket 连接转发到 room。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.logger().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logger().Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		// 只处理文本消息
		if messageType != websocket.TextMessage {
			c.logger().Debugf("Received non-text message type: %d", messageType)
			continue
		}
		c.logger().Debugf("Received raw message (size: %d)", len(message))
		c.hub.Dispatch(c, message)
	}
}

// WritePump 将消息从 send 通道写入 WebSocket 连接，并定期发送 Ping。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger().Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// room 关闭了发送队列
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger().WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger().WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}
