package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/hub"
	redisstate "pixelgrid/internal/infra/state/redis"
	"pixelgrid/internal/middleware"
	"pixelgrid/internal/repository"
	"pixelgrid/internal/repository/mocks"
	"pixelgrid/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUserID uint = 1

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeImporter struct {
	calls []*domain.PointsDocument
	err   error
}

func (f *fakeImporter) ImportDocument(_ context.Context, _ *domain.Board, _ uint, doc *domain.PointsDocument) error {
	f.calls = append(f.calls, doc)
	return f.err
}

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueContext(context.Context, *asynq.Task, ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{}, nil
}

type boardFixture struct {
	router    *gin.Engine
	boardRepo *mocks.BoardRepository
	stateRepo *redisstate.RedisStateRepository
	importer  *fakeImporter
}

func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	boardRepo := new(mocks.BoardRepository)
	snapshotRepo := new(mocks.SnapshotRepository)
	snapshotRepo.On("GetLatestSnapshot", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound).Maybe()
	actionRepo := new(mocks.ActionRepository)
	stateRepo := redisstate.NewRedisStateRepository(client, redisstate.DefaultKeyPrefix)

	boardService := service.NewBoardService(boardRepo, 64)
	snapshotService := service.NewSnapshotService(snapshotRepo, stateRepo, actionRepo)
	editorService := service.NewEditorService(stateRepo, snapshotService, noopEnqueuer{})
	importer := &fakeImporter{}
	handler := NewBoardHandler(boardService, editorService, importer, 1<<20)

	router := gin.New()
	api := router.Group("/api/boards", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUserID)
		c.Next()
	})
	api.POST("", handler.CreateBoard)
	api.POST("/image", handler.CreateBoardFromImage)
	api.GET("", handler.ListBoards)
	api.GET("/:id", handler.GetBoard)
	api.GET("/:id/image", handler.GetImage)
	api.GET("/:id/export", handler.ExportPoints)
	api.POST("/:id/points", handler.ImportPoints)
	api.GET("/:id/preview.png", handler.Preview)

	return &boardFixture{router: router, boardRepo: boardRepo, stateRepo: stateRepo, importer: importer}
}

func (f *boardFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func ownedBoard() *domain.Board {
	return &domain.Board{ID: 5, OwnerID: testUserID, Name: "b", Width: 4, Height: 3, Source: domain.BoardSourceBlank}
}

func TestBoardHandler_CreateBoard(t *testing.T) {
	f := newBoardFixture(t)
	f.boardRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Board")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Board).ID = 9 }).
		Return(nil).Once()

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/boards", bytes.NewBufferString(`{"width":16,"height":8}`)))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 9, resp["id"])
	assert.Equal(t, "Canvas 16x8", resp["name"])
	assert.Equal(t, "blank", resp["source"])
	f.boardRepo.AssertExpectations(t)
}

func TestBoardHandler_CreateBoardRejectsOversize(t *testing.T) {
	f := newBoardFixture(t)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/boards", bytes.NewBufferString(`{"width":65,"height":8}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.boardRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func multipartRequest(t *testing.T, field, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "sprite"))
	if field != "" {
		fw, err := mw.CreateFormFile(field, fileName)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/boards/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestBoardHandler_CreateBoardFromImage(t *testing.T) {
	f := newBoardFixture(t)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 7))))

	f.boardRepo.On("CreateWithImage", mock.Anything, mock.AnythingOfType("*domain.Board"), mock.AnythingOfType("*domain.BoardImage")).
		Return(nil).Once()

	w := f.do(multipartRequest(t, "image", "sprite.png", buf.Bytes()))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 12, resp["width"])
	assert.EqualValues(t, 7, resp["height"])
	assert.Equal(t, true, resp["has_image"])
	f.boardRepo.AssertExpectations(t)
}

func TestBoardHandler_CreateBoardFromImageWithoutFileIsNoOp(t *testing.T) {
	f := newBoardFixture(t)

	w := f.do(multipartRequest(t, "", "", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), service.ErrNoImage.Error())
	f.boardRepo.AssertNotCalled(t, "CreateWithImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBoardHandler_CreateBoardFromImageRejectsGarbage(t *testing.T) {
	f := newBoardFixture(t)

	w := f.do(multipartRequest(t, "image", "notes.txt", []byte("hello")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.boardRepo.AssertNotCalled(t, "CreateWithImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBoardHandler_GetBoardOwnership(t *testing.T) {
	f := newBoardFixture(t)
	other := ownedBoard()
	other.OwnerID = 99
	f.boardRepo.On("FindByID", mock.Anything, uint(5)).Return(other, nil).Once()
	f.boardRepo.On("FindByID", mock.Anything, uint(6)).Return(nil, repository.ErrNotFound).Once()

	assert.Equal(t, http.StatusForbidden, f.do(httptest.NewRequest(http.MethodGet, "/api/boards/5", nil)).Code)
	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/api/boards/6", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/api/boards/abc", nil)).Code)
}

func TestBoardHandler_GetImageOfBlankBoard(t *testing.T) {
	f := newBoardFixture(t)
	f.boardRepo.On("FindByID", mock.Anything, uint(5)).Return(ownedBoard(), nil).Once()

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/boards/5/image", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBoardHandler_ExportPoints(t *testing.T) {
	f := newBoardFixture(t)
	f.boardRepo.On("FindByID", mock.Anything, uint(5)).Return(ownedBoard(), nil).Once()
	require.NoError(t, f.stateRepo.ReplaceBoardState(context.Background(), 5, domain.BoardState{
		"3:1": "red",
		"0:1": "red",
		"2:0": "blue",
	}, 3))

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/boards/5/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="points.json"`, w.Header().Get("Content-Disposition"))
	assert.JSONEq(t, `{"format":"pixelgrid/points","version":1,"width":4,"height":3,
		"points":{"red":[[0,1],[3,1]],"blue":[[2,0]]}}`, w.Body.String())
}

func TestBoardHandler_ImportPoints(t *testing.T) {
	f := newBoardFixture(t)
	f.boardRepo.On("FindByID", mock.Anything, uint(5)).Return(ownedBoard(), nil).Twice()

	body := `{"format":"pixelgrid/points","version":1,"width":4,"height":3,"points":{"green":[[1,1]]}}`
	w := f.do(httptest.NewRequest(http.MethodPost, "/api/boards/5/points", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.importer.calls, 1)
	assert.Equal(t, 1, f.importer.calls[0].Len())

	w = f.do(httptest.NewRequest(http.MethodPost, "/api/boards/5/points", bytes.NewBufferString(`{"format":"other"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, f.importer.calls, 1)
}

func TestBoardHandler_ImportPointsSessionClosing(t *testing.T) {
	f := newBoardFixture(t)
	f.boardRepo.On("FindByID", mock.Anything, uint(5)).Return(ownedBoard(), nil).Once()
	f.importer.err = hub.ErrRoomClosed

	body := `{"format":"pixelgrid/points","version":1,"width":4,"height":3,"points":{}}`
	w := f.do(httptest.NewRequest(http.MethodPost, "/api/boards/5/points", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBoardHandler_Preview(t *testing.T) {
	f := newBoardFixture(t)
	f.boardRepo.On("FindByID", mock.Anything, uint(5)).Return(ownedBoard(), nil)
	require.NoError(t, f.stateRepo.ReplaceBoardState(context.Background(), 5, domain.BoardState{"1:2": "red"}, 1))

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/boards/5/preview.png?scale=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
	r, g, b, a := img.At(2, 4).RGBA()
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)})

	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/api/boards/5/preview.png?scale=0", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/api/boards/5/preview.png?scale=4097", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/api/boards/5/preview.png?scale=9223372036854775807", nil)).Code)
}

func TestBoardHandler_ListBoards(t *testing.T) {
	f := newBoardFixture(t)
	f.boardRepo.On("FindByOwner", mock.Anything, testUserID).Return(nil, nil).Once()

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/boards", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
