package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/imageinfo"
	"pixelgrid/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultMaxCanvasSize 是未配置时画板宽高的上限 (单元格)。
const DefaultMaxCanvasSize = 2048

const maxBoardNameLength = 191

// BoardService 负责画板的创建、查询和归属校验。
type BoardService struct {
	boardRepo     repository.BoardRepository
	maxCanvasSize int
}

// NewBoardService 创建 BoardService 实例。maxCanvasSize <= 0 时使用 DefaultMaxCanvasSize。
func NewBoardService(boardRepo repository.BoardRepository, maxCanvasSize int) *BoardService {
	if boardRepo == nil {
		panic("BoardRepository cannot be nil for BoardService")
	}
	if maxCanvasSize <= 0 {
		maxCanvasSize = DefaultMaxCanvasSize
	}
	return &BoardService{boardRepo: boardRepo, maxCanvasSize: maxCanvasSize}
}

// MaxCanvasSize 返回宽高上限。
func (s *BoardService) MaxCanvasSize() int { return s.maxCanvasSize }

// CreateBlank 按给定尺寸创建空白画板。
func (s *BoardService) CreateBlank(ctx context.Context, ownerID uint, name string, width, height int) (*domain.Board, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "width": width, "height": height})

	if width < 1 || height < 1 || width > s.maxCanvasSize || height > s.maxCanvasSize {
		return nil, fmt.Errorf("%w: %dx%d, each side must be between 1 and %d", ErrInvalidCanvasSize, width, height, s.maxCanvasSize)
	}
	name, err := normalizeBoardName(name, fmt.Sprintf("Canvas %dx%d", width, height))
	if err != nil {
		return nil, err
	}

	board := &domain.Board{
		OwnerID:    ownerID,
		Name:       name,
		Width:      width,
		Height:     height,
		Source:     domain.BoardSourceBlank,
		LastActive: time.Now(),
	}
	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save new blank board")
		return nil, ErrInternalServer
	}

	logCtx.WithField("board_id", board.ID).Info("Blank board created")
	return board, nil
}

// CreateFromImage 以图片的自然尺寸作为网格边界创建画板，并保存图片用于显示。
// 空数据返回 ErrNoImage，调用方应视为空操作。
func (s *BoardService) CreateFromImage(ctx context.Context, ownerID uint, name, fileName string, data []byte) (*domain.Board, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "file": fileName, "size": len(data)})

	info, err := imageinfo.Inspect(data, s.maxCanvasSize)
	if err != nil {
		switch {
		case errors.Is(err, imageinfo.ErrNoImage):
			return nil, ErrNoImage
		case errors.Is(err, imageinfo.ErrTooLarge):
			logCtx.WithError(err).Warn("Image rejected: too large")
			return nil, fmt.Errorf("%w: %v", ErrImageTooLarge, err)
		default:
			logCtx.WithError(err).Warn("Image rejected: cannot decode")
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}

	fileName = filepath.Base(fileName)
	defaultName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if defaultName == "" || defaultName == "." {
		defaultName = fmt.Sprintf("Image %dx%d", info.Width, info.Height)
	}
	name, err = normalizeBoardName(name, defaultName)
	if err != nil {
		return nil, err
	}

	board := &domain.Board{
		OwnerID:          ownerID,
		Name:             name,
		Width:            info.Width,
		Height:           info.Height,
		Source:           domain.BoardSourceImage,
		ImageName:        fileName,
		ImageContentType: info.ContentType,
		LastActive:       time.Now(),
	}
	image := &domain.BoardImage{ContentType: info.ContentType, Data: data}
	if err := s.boardRepo.CreateWithImage(ctx, board, image); err != nil {
		logCtx.WithError(err).Error("Failed to save board with image")
		return nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{
		"board_id": board.ID,
		"width":    board.Width,
		"height":   board.Height,
		"format":   info.Format,
	}).Info("Board created from image")
	return board, nil
}

// GetOwned 返回属于 userID 的画板。
func (s *BoardService) GetOwned(ctx context.Context, userID, boardID uint) (*domain.Board, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "board_id": boardID})
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		logCtx.WithError(err).Error("GetOwned: Repository error")
		return nil, ErrInternalServer
	}
	if board == nil {
		return nil, ErrBoardNotFound
	}
	if board.OwnerID != userID {
		logCtx.Warn("GetOwned: Board belongs to another user")
		return nil, ErrForbidden
	}
	return board, nil
}

// ListOwned 返回用户的全部画板。
func (s *BoardService) ListOwned(ctx context.Context, userID uint) ([]domain.Board, error) {
	boards, err := s.boardRepo.FindByOwner(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("ListOwned: Repository error")
		return nil, ErrInternalServer
	}
	if boards == nil {
		boards = []domain.Board{}
	}
	return boards, nil
}

// GetImage 返回画板底图。空白画板返回 ErrNoImage。
func (s *BoardService) GetImage(ctx context.Context, userID, boardID uint) (*domain.Board, *domain.BoardImage, error) {
	board, err := s.GetOwned(ctx, userID, boardID)
	if err != nil {
		return nil, nil, err
	}
	if !board.HasImage() {
		return board, nil, ErrNoImage
	}
	image, err := s.boardRepo.FindImage(ctx, boardID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return board, nil, ErrNoImage
		}
		logrus.WithField("board_id", boardID).WithError(err).Error("GetImage: Repository error")
		return nil, nil, ErrInternalServer
	}
	return board, image, nil
}

// Touch 更新画板的最后活跃时间，失败只记录日志。
func (s *BoardService) Touch(ctx context.Context, boardID uint) {
	if err := s.boardRepo.TouchLastActive(ctx, boardID); err != nil {
		logrus.WithField("board_id", boardID).WithError(err).Warn("Failed to update board last_active")
	}
}

func normalizeBoardName(name, fallback string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	if len(name) > maxBoardNameLength {
		return "", fmt.Errorf("%w: board name longer than %d bytes", ErrInvalidInput, maxBoardNameLength)
	}
	return name, nil
}
