package cache

import "testing"

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		params   Params
		want     string
	}{
		{
			name:     "no params",
			endpoint: "teams",
			want:     "teams",
		},
		{
			name:     "empty params",
			endpoint: "teams",
			params:   Params{},
			want:     "teams",
		},
		{
			name:     "single param",
			endpoint: "standings",
			params:   Params{"season": 2023},
			want:     "standings|season:2023",
		},
		{
			name:     "params sorted by name",
			endpoint: "players",
			params:   Params{"team": "Orlando Pirates", "season": 2024},
			want:     "players|season:2024|team:Orlando Pirates",
		},
		{
			name:     "mixed primitive values",
			endpoint: "fixtures",
			params:   Params{"z": true, "a": 1.5, "m": "x"},
			want:     "fixtures|a:1.5|m:x|z:true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildKey(tt.endpoint, tt.params); got != tt.want {
				t.Errorf("BuildKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildKey_Determinism(t *testing.T) {
	params := Params{"season": 2023, "team": "Sundowns", "page": 1, "league": 288}
	first := BuildKey("players", params)
	for i := 0; i < 20; i++ {
		if got := BuildKey("players", params); got != first {
			t.Fatalf("BuildKey not deterministic: %q vs %q", got, first)
		}
	}
}

func TestBelongsTo(t *testing.T) {
	tests := []struct {
		key, endpoint string
		want          bool
	}{
		{"players", "players", true},
		{"players|season:2023", "players", true},
		{"players-archive", "players", false},
		{"teams", "players", false},
		{"players|season:2023|team:x", "players|season:2023", true},
	}
	for _, tt := range tests {
		if got := belongsTo(tt.key, tt.endpoint); got != tt.want {
			t.Errorf("belongsTo(%q, %q) = %v, want %v", tt.key, tt.endpoint, got, tt.want)
		}
	}
}
