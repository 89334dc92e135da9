package services

import "testing"

func TestScore_PlacementTable(t *testing.T) {
	cases := []struct {
		name      string
		placement int
		kills     int
		want      int
	}{
		{"first place with kills", 1, 5, 20},
		{"second place no kills", 2, 0, 12},
		{"third place", 3, 4, 14},
		{"eighth place", 8, 2, 3},
		{"placement beyond table earns kills only", 9, 100, 100},
		{"zero placement earns kills only", 0, 3, 3},
		{"negative kills floored", 4, -7, 8},
		{"no placement no kills", 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.placement, tc.kills); got != tc.want {
				t.Errorf("Score(%d, %d) = %d, want %d", tc.placement, tc.kills, got, tc.want)
			}
		})
	}
}
