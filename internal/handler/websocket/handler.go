package websocket

import (
	"net/http"
	"strconv"
	"strings"

	httphandler "pixelgrid/internal/handler/http"
	"pixelgrid/internal/hub"
	"pixelgrid/internal/middleware"
	"pixelgrid/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler 负责校验画板归属、升级连接并将客户端注册到 Hub。
type WebSocketHandler struct {
	upgrader     websocket.Upgrader
	hub          *hub.Hub
	boardService *service.BoardService
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
// allowedOrigins 为空或包含 "*" 时接受任意来源。
func NewWebSocketHandler(h *hub.Hub, boardService *service.BoardService, allowedOrigins []string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if boardService == nil {
		panic("BoardService cannot be nil for WebSocketHandler")
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		hub:          h,
		boardService: boardService,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		if !ok {
			logrus.WithField("origin", origin).Warn("WS Handler: Origin not allowed")
		}
		return ok
	}
}

// HandleConnection 处理 WebSocket 连接请求
// URL 格式: /ws/boards/:id
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.Warn("WS Handler: User ID not found in context")
		httphandler.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	boardID64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || boardID64 == 0 {
		logCtx.Warnf("WS Handler: Invalid board ID format: %s", c.Param("id"))
		httphandler.ErrorResponse(c, http.StatusBadRequest, "Invalid board ID format")
		return
	}
	logCtx = logCtx.WithField("board_id", boardID64)

	// 升级前校验归属，此时仍可返回 HTTP 错误
	board, err := h.boardService.GetOwned(c.Request.Context(), userID, uint(boardID64))
	if err != nil {
		logCtx.WithError(err).Warn("WS Handler: Board check failed")
		httphandler.HandleServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写入了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, board, userID)
	if err := h.hub.Register(client); err != nil {
		logCtx.WithError(err).Error("WS Handler: Failed to register client")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		conn.Close()
		return
	}
	client.Run()
	logCtx.Info("WS Handler: Client registered, read/write pumps started")
}
