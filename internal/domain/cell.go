package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Cell 表示网格中的一个单元格坐标：X 为列，Y 为行。
// 单元格本身不是对象，只有被涂色时才存在于状态中。
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key 返回单元格在 Redis Hash / BoardState 中使用的字段名，格式 "x:y"。
func (c Cell) Key() string {
	return strconv.Itoa(c.X) + ":" + strconv.Itoa(c.Y)
}

// String 返回状态栏显示用的坐标文本，格式固定为 "(x, y)"。
func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// ParseCellKey 解析 "x:y" 格式的字段名。
func ParseCellKey(key string) (Cell, error) {
	xs, ys, ok := strings.Cut(key, ":")
	if !ok {
		return Cell{}, fmt.Errorf("invalid cell key %q", key)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return Cell{}, fmt.Errorf("invalid cell key %q: %w", key, err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Cell{}, fmt.Errorf("invalid cell key %q: %w", key, err)
	}
	return Cell{X: x, Y: y}, nil
}

// Color 是单元格的颜色值，可以是颜色名 ("red") 或十六进制 ("#ff0000")。
type Color string

// DefaultColor 画笔的默认颜色。
const DefaultColor Color = "red"

const maxColorLength = 32

var (
	hexColorPattern  = regexp.MustCompile(`^#([0-9a-f]{3}|[0-9a-f]{4}|[0-9a-f]{6}|[0-9a-f]{8})$`)
	nameColorPattern = regexp.MustCompile(`^[a-z]+$`)

	ErrInvalidColor = errors.New("invalid color value")
)

// ParseColor 规范化并校验颜色字符串 (去空白、转小写)。
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > maxColorLength {
		return "", ErrInvalidColor
	}
	if hexColorPattern.MatchString(s) || nameColorPattern.MatchString(s) {
		return Color(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// BoardState 定义了画板的实时状态。
// 使用 map 将坐标（格式化为 "x:y" 字符串）映射到颜色字符串。
type BoardState map[string]string // 例如: {"10:20": "red", "11:21": "#0000ff"}

// Cells 将 BoardState 解析为单元格到颜色的映射，遇到非法字段名返回错误。
func (s BoardState) Cells() (map[Cell]Color, error) {
	cells := make(map[Cell]Color, len(s))
	for key, color := range s {
		cell, err := ParseCellKey(key)
		if err != nil {
			return nil, err
		}
		cells[cell] = Color(color)
	}
	return cells, nil
}
