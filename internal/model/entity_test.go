package model

import "testing"

func TestEntity_Overlaps(t *testing.T) {
	tests := []struct {
		name                string
		entity              Entity
		x, y, width, height int
		want                bool
	}{
		{"identical rects", Entity{X: 2, Y: 2, Width: 3, Height: 3}, 2, 2, 3, 3, true},
		{"partial overlap", Entity{X: 0, Y: 0, Width: 4, Height: 4}, 2, 2, 4, 4, true},
		{"touching edges only", Entity{X: 0, Y: 0, Width: 2, Height: 2}, 2, 0, 2, 2, false},
		{"disjoint", Entity{X: 0, Y: 0, Width: 1, Height: 1}, 5, 5, 1, 1, false},
		{"point entity inside rect", Entity{X: 3, Y: 3, Width: 0, Height: 0}, 2, 2, 3, 3, true},
		{"point entity outside rect", Entity{X: 6, Y: 6, Width: 0, Height: 0}, 2, 2, 3, 3, false},
		{"point query inside entity", Entity{X: 2, Y: 2, Width: 3, Height: 3}, 3, 3, 0, 0, true},
		{"point query on exclusive edge", Entity{X: 2, Y: 2, Width: 3, Height: 3}, 5, 2, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entity.Overlaps(tt.x, tt.y, tt.width, tt.height); got != tt.want {
				t.Errorf("Overlaps(%d, %d, %d, %d) = %v, want %v",
					tt.x, tt.y, tt.width, tt.height, got, tt.want)
			}
		})
	}
}
