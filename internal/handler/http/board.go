package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/dto"
	"pixelgrid/internal/middleware"
	"pixelgrid/internal/preview"
	"pixelgrid/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DefaultMaxUploadBytes 是未配置时图片和 points 文档上传的大小上限。
const DefaultMaxUploadBytes = 16 << 20

// DocumentImporter 用 points 文档替换画板内容，由 hub.Hub 实现以便同步在线会话。
type DocumentImporter interface {
	ImportDocument(ctx context.Context, board *domain.Board, userID uint, doc *domain.PointsDocument) error
}

// BoardHandler 封装了画板管理、导入导出相关的 HTTP 处理逻辑
type BoardHandler struct {
	boardService   *service.BoardService
	editorService  *service.EditorService
	importer       DocumentImporter
	maxUploadBytes int64
}

// NewBoardHandler 创建 BoardHandler 实例
func NewBoardHandler(boardService *service.BoardService, editorService *service.EditorService, importer DocumentImporter, maxUploadBytes int64) *BoardHandler {
	if boardService == nil || editorService == nil || importer == nil {
		panic("BoardHandler dependencies cannot be nil")
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &BoardHandler{
		boardService:   boardService,
		editorService:  editorService,
		importer:       importer,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateBoard 按给定尺寸创建空白画板
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Handler.CreateBoard: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	board, err := h.boardService.CreateBlank(c.Request.Context(), userID, req.Name, req.Width, req.Height)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dto.NewBoardResponse(board))
}

// CreateBoardFromImage 以上传图片的尺寸创建画板。未选择文件时是空操作，不创建画板。
func (h *BoardHandler) CreateBoardFromImage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(c, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		logCtx.WithError(err).Info("Handler.CreateBoardFromImage: No image selected")
		HandleServiceError(c, service.ErrNoImage)
		return
	}
	data, err := readFormFile(fileHeader, h.maxUploadBytes)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.CreateBoardFromImage: Failed to read upload")
		ErrorResponse(c, http.StatusBadRequest, "failed to read uploaded image")
		return
	}

	board, err := h.boardService.CreateFromImage(c.Request.Context(), userID, c.PostForm("name"), fileHeader.Filename, data)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dto.NewBoardResponse(board))
}

// ListBoards 返回当前用户的画板列表
func (h *BoardHandler) ListBoards(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	boards, err := h.boardService.ListOwned(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.NewBoardListResponse(boards))
}

// GetBoard 返回单个画板信息
func (h *BoardHandler) GetBoard(c *gin.Context) {
	board, _, ok := h.ownedBoard(c)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, dto.NewBoardResponse(board))
}

// GetImage 返回画板底图的原始字节
func (h *BoardHandler) GetImage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	boardID, ok := boardIDParam(c)
	if !ok {
		return
	}
	_, image, err := h.boardService.GetImage(c.Request.Context(), userID, boardID)
	if err != nil {
		if errors.Is(err, service.ErrNoImage) {
			ErrorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		HandleServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, image.ContentType, image.Data)
}

// ExportPoints 以附件形式下载 points.json
func (h *BoardHandler) ExportPoints(c *gin.Context) {
	board, userID, ok := h.ownedBoard(c)
	if !ok {
		return
	}
	doc, err := h.editorService.ExportDocument(c.Request.Context(), board)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	data, err := doc.Marshal()
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"board_id": board.ID, "user_id": userID, "points": doc.Len()}).Info("Handler.ExportPoints: Points exported")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, domain.PointsFileName))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ImportPoints 用请求体中的 points 文档替换画板内容
func (h *BoardHandler) ImportPoints(c *gin.Context) {
	board, userID, ok := h.ownedBoard(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes))
	if err != nil {
		ErrorResponse(c, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	doc, err := service.ParseDocument(data)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if err := h.importer.ImportDocument(c.Request.Context(), board, userID, doc); err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"board_id": board.ID, "user_id": userID, "points": doc.Len()}).Info("Handler.ImportPoints: Points imported")
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Points imported", "points": doc.Len()})
}

// Preview 返回画板内容的 PNG 预览图，scale 为每个单元格的像素数。
func (h *BoardHandler) Preview(c *gin.Context) {
	board, _, ok := h.ownedBoard(c)
	if !ok {
		return
	}
	scale, err := strconv.Atoi(c.DefaultQuery("scale", "1"))
	if err != nil || scale < 1 || scale > preview.MaxSide {
		ErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("scale must be an integer between 1 and %d", preview.MaxSide))
		return
	}
	doc, err := h.editorService.ExportDocument(c.Request.Context(), board)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := preview.WritePNG(&buf, doc, scale); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// ownedBoard 校验路径中的画板属于当前用户。失败时已写入响应。
func (h *BoardHandler) ownedBoard(c *gin.Context) (*domain.Board, uint, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return nil, 0, false
	}
	boardID, ok := boardIDParam(c)
	if !ok {
		return nil, 0, false
	}
	board, err := h.boardService.GetOwned(c.Request.Context(), userID, boardID)
	if err != nil {
		HandleServiceError(c, err)
		return nil, 0, false
	}
	return board, userID, true
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.WithField("path", c.FullPath()).Warn("Handler: User ID not found in context")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return 0, false
	}
	return userID, true
}

func boardIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid board ID format")
		return 0, false
	}
	return uint(id), true
}

func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}
