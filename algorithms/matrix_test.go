package algorithms

import "testing"

func TestNewMatrixFillsEveryCell(t *testing.T) {
	m := NewMatrix(3, 4, 0.25)
	if m.Height() != 3 || m.Width() != 4 {
		t.Fatalf("Expected 3x4, got %dx%d", m.Height(), m.Width())
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			if got := m.At(row, col); got != 0.25 {
				t.Errorf("Expected 0.25 at (%d, %d), got %v", row, col, got)
			}
		}
	}
}

func TestMatrixSetAndFill(t *testing.T) {
	m := NewMatrix(2, 2, "")
	m.Set(1, 0, "x")
	if m.At(1, 0) != "x" {
		t.Errorf("Expected x, got %q", m.At(1, 0))
	}
	if m.At(0, 1) != "" {
		t.Errorf("Expected untouched cell to stay empty, got %q", m.At(0, 1))
	}

	m.Fill("y")
	if m.At(1, 0) != "y" || m.At(0, 0) != "y" {
		t.Errorf("Expected every cell to be y after Fill")
	}
}

func TestMatrixRejectsBadDimensions(t *testing.T) {
	tests := []struct {
		name          string
		height, width int
	}{
		{"Zero height", 0, 5},
		{"Zero width", 5, 0},
		{"Negative", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic for %dx%d", tt.height, tt.width)
				}
			}()
			NewMatrix(tt.height, tt.width, 0)
		})
	}
}

func TestMatrixOutOfRangePanics(t *testing.T) {
	m := NewMatrix(2, 3, 0)
	if m.Contains(2, 0) || m.Contains(0, 3) || m.Contains(-1, 0) {
		t.Errorf("Expected Contains to reject out of range cells")
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic reading (0, 3)")
		}
	}()
	m.At(0, 3)
}

func TestMatrixCopyFrom(t *testing.T) {
	dst := NewMatrix(2, 2, 0)
	src := NewMatrix(2, 2, 0)
	src.Set(1, 1, 7)

	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("Expected copy to succeed, got %v", err)
	}
	if dst.At(1, 1) != 7 {
		t.Errorf("Expected 7 after copy, got %v", dst.At(1, 1))
	}
	src.Set(1, 1, 9)
	if dst.At(1, 1) != 7 {
		t.Errorf("Expected copy to be independent of its source")
	}

	if err := dst.CopyFrom(NewMatrix(3, 2, 0)); err == nil {
		t.Errorf("Expected error for different size")
	}
}
