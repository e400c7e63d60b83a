package model

import "testing"

func TestZone_IsPositionValid(t *testing.T) {
	z := &Zone{Width: 10, Height: 5}

	tests := []struct {
		name string
		x, y int
		want bool
	}{
		{"origin", 0, 0, true},
		{"inside", 4, 3, true},
		{"right edge exclusive", 10, 0, false},
		{"bottom edge exclusive", 0, 5, false},
		{"last valid cell", 9, 4, true},
		{"negative x", -1, 0, false},
		{"negative y", 0, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := z.IsPositionValid(tt.x, tt.y); got != tt.want {
				t.Errorf("IsPositionValid(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestZone_FitsInBounds(t *testing.T) {
	z := &Zone{Width: 10, Height: 10}

	tests := []struct {
		name                string
		x, y, width, height int
		want                bool
	}{
		{"unit entity at origin", 0, 0, 1, 1, true},
		{"fills zone exactly", 0, 0, 10, 10, true},
		{"sticks out right", 9, 0, 2, 1, false},
		{"sticks out bottom", 0, 9, 1, 2, false},
		{"negative position", -1, 0, 1, 1, false},
		{"zero-size inside", 9, 9, 0, 0, true},
		{"zero-size outside", 10, 10, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := z.FitsInBounds(tt.x, tt.y, tt.width, tt.height); got != tt.want {
				t.Errorf("FitsInBounds(%d, %d, %d, %d) = %v, want %v",
					tt.x, tt.y, tt.width, tt.height, got, tt.want)
			}
		})
	}
}
