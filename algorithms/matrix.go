package algorithms

import "fmt"

// Matrix - 고정 크기 2차원 격자. row*width+col 순서로 평면 저장한다.
type Matrix[T any] struct {
	height int
	width  int
	data   []T
}

// NewMatrix - 모든 셀을 fill 값으로 채운 행렬 생성
func NewMatrix[T any](height, width int, fill T) *Matrix[T] {
	if height < 1 || width < 1 {
		panic(fmt.Sprintf("matrix: 잘못된 크기 %dx%d", height, width))
	}
	m := &Matrix[T]{
		height: height,
		width:  width,
		data:   make([]T, height*width),
	}
	m.Fill(fill)
	return m
}

func (m *Matrix[T]) Height() int { return m.height }
func (m *Matrix[T]) Width() int  { return m.width }

// Contains - (row, col)이 행렬 범위 안인지
func (m *Matrix[T]) Contains(row, col int) bool {
	return row >= 0 && row < m.height && col >= 0 && col < m.width
}

// At - 셀 값. 범위 밖이면 panic.
func (m *Matrix[T]) At(row, col int) T {
	return m.data[m.index(row, col)]
}

// Set - 셀 값 변경. 범위 밖이면 panic.
func (m *Matrix[T]) Set(row, col int, v T) {
	m.data[m.index(row, col)] = v
}

// Fill - 모든 셀을 v로 채움
func (m *Matrix[T]) Fill(v T) {
	for i := range m.data {
		m.data[i] = v
	}
}

func (m *Matrix[T]) index(row, col int) int {
	if !m.Contains(row, col) {
		panic(fmt.Sprintf("matrix: (%d, %d) 범위 밖 (%dx%d)", row, col, m.height, m.width))
	}
	return row*m.width + col
}

// CopyFrom - 같은 크기의 src 값으로 덮어쓴다
func (m *Matrix[T]) CopyFrom(src *Matrix[T]) error {
	if src.height != m.height || src.width != m.width {
		return fmt.Errorf("matrix: 크기가 다릅니다 %dx%d ← %dx%d", m.height, m.width, src.height, src.width)
	}
	copy(m.data, src.data)
	return nil
}
