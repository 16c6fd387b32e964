package service_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/repository"
	"pixelgrid/internal/repository/mocks"
	"pixelgrid/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestBoardService_CreateBlank(t *testing.T) {
	repo := new(mocks.BoardRepository)
	svc := service.NewBoardService(repo, 64)
	ctx := context.Background()

	repo.On("Save", ctx, mock.MatchedBy(func(b *domain.Board) bool {
		return b.OwnerID == 1 && b.Width == 32 && b.Height == 16 && b.Source == domain.BoardSourceBlank && b.Name == "Canvas 32x16"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Board).ID = 9
	}).Return(nil).Once()

	board, err := svc.CreateBlank(ctx, 1, "  ", 32, 16)
	require.NoError(t, err)
	assert.Equal(t, uint(9), board.ID)
	assert.False(t, board.HasImage())
	repo.AssertExpectations(t)
}

func TestBoardService_CreateBlank_InvalidSize(t *testing.T) {
	repo := new(mocks.BoardRepository)
	svc := service.NewBoardService(repo, 64)

	for _, size := range [][2]int{{0, 10}, {10, 0}, {65, 10}, {10, -1}} {
		_, err := svc.CreateBlank(context.Background(), 1, "x", size[0], size[1])
		assert.ErrorIs(t, err, service.ErrInvalidCanvasSize, "size %v", size)
	}
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestBoardService_CreateFromImage(t *testing.T) {
	repo := new(mocks.BoardRepository)
	svc := service.NewBoardService(repo, 0)
	ctx := context.Background()
	data := encodePNG(t, 12, 7)

	repo.On("CreateWithImage", ctx,
		mock.MatchedBy(func(b *domain.Board) bool {
			return b.Width == 12 && b.Height == 7 && b.Source == domain.BoardSourceImage &&
				b.Name == "sprite" && b.ImageName == "sprite.png" && b.ImageContentType == "image/png"
		}),
		mock.MatchedBy(func(img *domain.BoardImage) bool {
			return bytes.Equal(img.Data, data) && img.ContentType == "image/png"
		}),
	).Return(nil).Once()

	board, err := svc.CreateFromImage(ctx, 2, "", "../uploads/sprite.png", data)
	require.NoError(t, err)
	assert.Equal(t, 12, board.Width)
	assert.Equal(t, 7, board.Height)
	repo.AssertExpectations(t)
}

func TestBoardService_CreateFromImage_Errors(t *testing.T) {
	repo := new(mocks.BoardRepository)
	svc := service.NewBoardService(repo, 8)
	ctx := context.Background()

	_, err := svc.CreateFromImage(ctx, 1, "", "empty.png", nil)
	assert.ErrorIs(t, err, service.ErrNoImage)

	_, err = svc.CreateFromImage(ctx, 1, "", "notes.txt", []byte("definitely not an image"))
	assert.ErrorIs(t, err, service.ErrInvalidImage)

	_, err = svc.CreateFromImage(ctx, 1, "", "big.png", encodePNG(t, 9, 2))
	assert.ErrorIs(t, err, service.ErrImageTooLarge)

	repo.AssertNotCalled(t, "CreateWithImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBoardService_GetOwned(t *testing.T) {
	repo := new(mocks.BoardRepository)
	svc := service.NewBoardService(repo, 0)
	ctx := context.Background()

	repo.On("FindByID", ctx, uint(1)).Return(&domain.Board{ID: 1, OwnerID: 7}, nil)
	repo.On("FindByID", ctx, uint(2)).Return(nil, repository.ErrBoardNotFound)

	board, err := svc.GetOwned(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), board.ID)

	_, err = svc.GetOwned(ctx, 8, 1)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.GetOwned(ctx, 7, 2)
	assert.ErrorIs(t, err, service.ErrBoardNotFound)
}

func TestBoardService_GetImage(t *testing.T) {
	repo := new(mocks.BoardRepository)
	svc := service.NewBoardService(repo, 0)
	ctx := context.Background()

	repo.On("FindByID", ctx, uint(1)).Return(&domain.Board{ID: 1, OwnerID: 7, Source: domain.BoardSourceBlank}, nil)
	repo.On("FindByID", ctx, uint(2)).Return(&domain.Board{ID: 2, OwnerID: 7, Source: domain.BoardSourceImage}, nil)
	repo.On("FindImage", ctx, uint(2)).Return(&domain.BoardImage{BoardID: 2, ContentType: "image/png", Data: []byte{1}}, nil)

	_, _, err := svc.GetImage(ctx, 7, 1)
	assert.ErrorIs(t, err, service.ErrNoImage)

	_, img, err := svc.GetImage(ctx, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestBoardService_ListOwned_Empty(t *testing.T) {
	repo := new(mocks.BoardRepository)
	svc := service.NewBoardService(repo, 0)
	repo.On("FindByOwner", mock.Anything, uint(3)).Return(nil, nil)

	boards, err := svc.ListOwned(context.Background(), 3)
	require.NoError(t, err)
	assert.NotNil(t, boards)
	assert.Empty(t, boards)
}
