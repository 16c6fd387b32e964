package dto

import (
	"time"

	"pixelgrid/internal/domain"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AccountResponse 是注册成功后返回的账号信息
type AccountResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func NewAccountResponse(u *domain.User) AccountResponse {
	resp := AccountResponse{ID: u.ID, Username: u.Username}
	if u.Email != nil {
		resp.Email = *u.Email
	}
	return resp
}

// LoginResponse 携带访问画板 API 和 WebSocket 的 token
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// CreateBoardRequest 按尺寸创建空白画板
type CreateBoardRequest struct {
	Name   string `json:"name"`
	Width  int    `json:"width" binding:"required,min=1"`
	Height int    `json:"height" binding:"required,min=1"`
}

// BoardResponse 是返回给客户端的画板信息
type BoardResponse struct {
	ID         uint               `json:"id"`
	Name       string             `json:"name"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Source     domain.BoardSource `json:"source"`
	HasImage   bool               `json:"has_image"`
	ImageName  string             `json:"image_name,omitempty"`
	LastActive time.Time          `json:"last_active"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewBoardResponse 由领域模型构建响应
func NewBoardResponse(b *domain.Board) BoardResponse {
	return BoardResponse{
		ID:         b.ID,
		Name:       b.Name,
		Width:      b.Width,
		Height:     b.Height,
		Source:     b.Source,
		HasImage:   b.HasImage(),
		ImageName:  b.ImageName,
		LastActive: b.LastActive,
		CreatedAt:  b.CreatedAt,
	}
}

// NewBoardListResponse 构建画板列表响应
func NewBoardListResponse(boards []domain.Board) []BoardResponse {
	out := make([]BoardResponse, 0, len(boards))
	for i := range boards {
		out = append(out, NewBoardResponse(&boards[i]))
	}
	return out
}
