package pagination

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"in range", 3, 25, 3, 25},
		{"zero values take defaults", 0, 0, DefaultPage, DefaultLimit},
		{"negative values take defaults", -1, -10, DefaultPage, DefaultLimit},
		{"limit capped", 1, 5000, 1, MaxLimit},
		{"minimum limit kept", 1, MinLimit, 1, MinLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := Normalize(tt.page, tt.limit)
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("Normalize(%d, %d) = (%d, %d), want (%d, %d)",
					tt.page, tt.limit, page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}
