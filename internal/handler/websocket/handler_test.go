package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/grid"
	"pixelgrid/internal/hub"
	redisstate "pixelgrid/internal/infra/state/redis"
	"pixelgrid/internal/middleware"
	"pixelgrid/internal/repository"
	"pixelgrid/internal/repository/mocks"
	"pixelgrid/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueContext(context.Context, *asynq.Task, ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	boardRepo := new(mocks.BoardRepository)
	boardRepo.On("FindByID", mock.Anything, uint(5)).
		Return(&domain.Board{ID: 5, OwnerID: 1, Width: 4, Height: 4, Source: domain.BoardSourceBlank}, nil)
	boardRepo.On("FindByID", mock.Anything, uint(6)).
		Return(&domain.Board{ID: 6, OwnerID: 2, Width: 4, Height: 4, Source: domain.BoardSourceBlank}, nil)
	boardRepo.On("TouchLastActive", mock.Anything, mock.Anything).Return(nil)
	snapshotRepo := new(mocks.SnapshotRepository)
	snapshotRepo.On("GetLatestSnapshot", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	stateRepo := redisstate.NewRedisStateRepository(client, redisstate.DefaultKeyPrefix)
	boardService := service.NewBoardService(boardRepo, 0)
	snapshotService := service.NewSnapshotService(snapshotRepo, stateRepo, new(mocks.ActionRepository))
	editorService := service.NewEditorService(stateRepo, snapshotService, noopEnqueuer{})

	h := hub.NewHub(editorService, boardService, grid.DefaultOptions())
	t.Cleanup(h.Shutdown)

	r := gin.New()
	r.GET("/ws/boards/:id", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uint(1))
		c.Next()
	}, NewWebSocketHandler(h, boardService, []string{"*"}).HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, mr
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleConnection_PaintRoundTrip(t *testing.T) {
	srv, mr := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/boards/5"), nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, want := range []string{"grid", "viewport", "tool", "status"} {
		assert.Equal(t, want, readType(t, conn)["type"])
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "pointer_down", "x": 2.5, "y": 1.5}))
	add := readType(t, conn)
	assert.Equal(t, "cell_add", add["type"])
	assert.EqualValues(t, 2, add["x"])
	assert.EqualValues(t, 1, add["y"])

	status := readType(t, conn)
	assert.Equal(t, "(2, 1)", status["cell"])

	assert.Equal(t, "red", mr.HGet(redisstate.DefaultKeyPrefix+"board:5:state", "2:1"))
}

func TestHandleConnection_ForbiddenBoard(t *testing.T) {
	srv, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/boards/6"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://draw.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws/boards/1", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://draw.example.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
	assert.True(t, originChecker([]string{"*"})(req))
}
