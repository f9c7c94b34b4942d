package core_test

import (
	"testing"

	"stock-engine/internal/core"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name         string
		onHand       int
		reorderPoint int
		want         core.StockStatus
	}{
		{"above reorder point", 6, 5, core.StatusGreen},
		{"at reorder point", 5, 5, core.StatusAmber},
		{"below reorder point", 3, 5, core.StatusRed},
		{"empty with zero reorder point", 0, 0, core.StatusAmber},
		{"empty", 0, 5, core.StatusRed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := core.DeriveStatus(tc.onHand, tc.reorderPoint); got != tc.want {
				t.Errorf("DeriveStatus(%d, %d) = %s, want %s", tc.onHand, tc.reorderPoint, got, tc.want)
			}
		})
	}
}
