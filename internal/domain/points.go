package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// points 文档的格式标识与版本。导出文件固定命名为 points.json。
const (
	PointsFormat   = "pixelgrid/points"
	PointsVersion  = 1
	PointsFileName = "points.json"
)

var ErrInvalidDocument = errors.New("invalid points document")

// PointsDocument 是导出/导入的单元格列表：颜色 -> [x, y] 坐标对列表。
//
//	{"format":"pixelgrid/points","version":1,"width":8,"height":8,
//	 "points":{"red":[[2,3],[4,5]]}}
type PointsDocument struct {
	Format  string             `json:"format"`
	Version int                `json:"version"`
	Width   int                `json:"width"`
	Height  int                `json:"height"`
	Points  map[Color][][2]int `json:"points"`
}

// NewPointsDocument 创建一个空文档。
func NewPointsDocument(width, height int) *PointsDocument {
	return &PointsDocument{
		Format:  PointsFormat,
		Version: PointsVersion,
		Width:   width,
		Height:  height,
		Points:  make(map[Color][][2]int),
	}
}

// Add 追加一个坐标。调用方保证同一坐标只添加一次。
func (d *PointsDocument) Add(cell Cell, color Color) {
	d.Points[color] = append(d.Points[color], [2]int{cell.X, cell.Y})
}

// Len 返回文档中的坐标总数。
func (d *PointsDocument) Len() int {
	n := 0
	for _, pairs := range d.Points {
		n += len(pairs)
	}
	return n
}

// Sort 将每种颜色的坐标按 (y, x) 排序，保证导出内容稳定。
func (d *PointsDocument) Sort() {
	for _, pairs := range d.Points {
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i][1] != pairs[j][1] {
				return pairs[i][1] < pairs[j][1]
			}
			return pairs[i][0] < pairs[j][0]
		})
	}
}

// Validate 检查格式、版本、颜色，并拒绝同一坐标出现多次。
// 颜色键被规范化为 ParseColor 的形式，规范化后相同的两个键视为重复。
func (d *PointsDocument) Validate() error {
	if d.Format != PointsFormat {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidDocument, d.Format)
	}
	if d.Version != PointsVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, d.Version)
	}
	if d.Width < 0 || d.Height < 0 {
		return fmt.Errorf("%w: negative bounds %dx%d", ErrInvalidDocument, d.Width, d.Height)
	}
	seen := make(map[Cell]struct{}, d.Len())
	normalized := make(map[Color][][2]int, len(d.Points))
	for color, pairs := range d.Points {
		c, err := ParseColor(string(color))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if _, dup := normalized[c]; dup {
			return fmt.Errorf("%w: duplicate color %q", ErrInvalidDocument, c)
		}
		normalized[c] = pairs
		for _, p := range pairs {
			cell := Cell{X: p[0], Y: p[1]}
			if _, dup := seen[cell]; dup {
				return fmt.Errorf("%w: duplicate point %s", ErrInvalidDocument, cell)
			}
			seen[cell] = struct{}{}
		}
	}
	d.Points = normalized
	return nil
}

// State 将文档转换为 BoardState。
func (d *PointsDocument) State() BoardState {
	state := make(BoardState, d.Len())
	for color, pairs := range d.Points {
		for _, p := range pairs {
			state[Cell{X: p[0], Y: p[1]}.Key()] = string(color)
		}
	}
	return state
}

// Marshal 序列化为 UTF-8 JSON。
func (d *PointsDocument) Marshal() ([]byte, error) {
	bytes, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal points document: %w", err)
	}
	return bytes, nil
}

// ParsePointsDocument 解析并校验 points 文档。
func ParsePointsDocument(data []byte) (*PointsDocument, error) {
	var doc PointsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Points == nil {
		doc.Points = make(map[Color][][2]int)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentFromState 由 BoardState 构建已排序的 points 文档。
func DocumentFromState(width, height int, state BoardState) (*PointsDocument, error) {
	doc := NewPointsDocument(width, height)
	for key, color := range state {
		cell, err := ParseCellKey(key)
		if err != nil {
			return nil, err
		}
		doc.Add(cell, Color(color))
	}
	doc.Sort()
	return doc, nil
}
