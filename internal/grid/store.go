package grid

import (
	"iter"

	"pixelgrid/internal/domain"
)

// Entry 是存储中的一个已涂色单元格。
type Entry struct {
	Cell  domain.Cell
	Color domain.Color
}

// Store 是稀疏单元格存储：行 -> 列 -> 颜色。
// 坐标在存储中当且仅当该单元格已涂色；不存在即未涂色，没有显式的空标记。
// Store 不做边界检查，也不持有渲染句柄。
type Store struct {
	rows map[int]map[int]domain.Color
	n    int
}

// NewStore 创建空存储。
func NewStore() *Store {
	return &Store{rows: make(map[int]map[int]domain.Color)}
}

// Has 当且仅当 c 已涂色时返回 true。
func (s *Store) Has(c domain.Cell) bool {
	_, ok := s.rows[c.Y][c.X]
	return ok
}

// Get 返回 c 的颜色。
func (s *Store) Get(c domain.Cell) (domain.Color, bool) {
	color, ok := s.rows[c.Y][c.X]
	return color, ok
}

// Put 插入或覆盖 c 的颜色。
func (s *Store) Put(c domain.Cell, color domain.Color) {
	row, ok := s.rows[c.Y]
	if !ok {
		row = make(map[int]domain.Color)
		s.rows[c.Y] = row
	}
	if _, exists := row[c.X]; !exists {
		s.n++
	}
	row[c.X] = color
}

// Remove 删除 c，返回是否确实删除了条目。不存在时是空操作。
func (s *Store) Remove(c domain.Cell) bool {
	row, ok := s.rows[c.Y]
	if !ok {
		return false
	}
	if _, exists := row[c.X]; !exists {
		return false
	}
	delete(row, c.X)
	if len(row) == 0 {
		delete(s.rows, c.Y)
	}
	s.n--
	return true
}

// Clear 删除所有条目并返回删除的数量。
func (s *Store) Clear() int {
	n := s.n
	s.rows = make(map[int]map[int]domain.Color)
	s.n = 0
	return n
}

// Len 返回已涂色单元格数量。
func (s *Store) Len() int { return s.n }

// Entries 惰性枚举所有条目，顺序不保证，可重复遍历。
// 遍历期间不得修改存储。
func (s *Store) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for y, row := range s.rows {
			for x, color := range row {
				if !yield(Entry{Cell: domain.Cell{X: x, Y: y}, Color: color}) {
					return
				}
			}
		}
	}
}
