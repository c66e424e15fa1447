package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuorumMet(t *testing.T) {
	tests := []struct {
		name      string
		confirmed int
		total     int
		quorum    string
		want      bool
	}{
		{"all confirmed at full quorum", 3, 3, "1", true},
		{"one missing at full quorum", 2, 3, "1", false},
		{"majority quorum met", 2, 3, "0.6", true},
		{"majority quorum not met", 1, 3, "0.6", false},
		{"empty period", 0, 0, "0.6", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuorumMet(tt.confirmed, tt.total, decimal.RequireFromString(tt.quorum))
			if got != tt.want {
				t.Errorf("QuorumMet(%d, %d, %s) = %v, want %v", tt.confirmed, tt.total, tt.quorum, got, tt.want)
			}
		})
	}
}

func TestProRata(t *testing.T) {
	caps := func(m map[string]int64) func(string) int64 {
		return func(key string) int64 { return m[key] }
	}

	tests := []struct {
		name            string
		total           int64
		shares          []Share
		capFor          func(string) int64
		want            map[string]int64
		wantUnallocated int64
	}{
		{
			name:   "equal weights, remainder to first",
			total:  100,
			shares: []Share{{"a", 1}, {"b", 1}, {"c", 1}},
			want:   map[string]int64{"a": 34, "b": 33, "c": 33},
		},
		{
			name:   "proportional to pledges",
			total:  5000,
			shares: []Share{{"a", 3000}, {"b", 2000}},
			want:   map[string]int64{"a": 3000, "b": 2000},
		},
		{
			name:   "largest fractional remainder wins",
			total:  10,
			shares: []Share{{"a", 1}, {"b", 2}},
			// a = 3.33.., b = 6.66.. -> b takes the leftover unit
			want: map[string]int64{"a": 3, "b": 7},
		},
		{
			name:   "capped excess is redistributed",
			total:  300,
			shares: []Share{{"a", 100}, {"b", 200}},
			capFor: caps(map[string]int64{"a": 50, "b": 1000}),
			want:   map[string]int64{"a": 50, "b": 250},
		},
		{
			name:            "caps leave an unallocated remainder",
			total:           300,
			shares:          []Share{{"a", 100}, {"b", 200}},
			capFor:          caps(map[string]int64{"a": 50, "b": 220}),
			want:            map[string]int64{"a": 50, "b": 220},
			wantUnallocated: 30,
		},
		{
			name:            "zero weights allocate nothing",
			total:           100,
			shares:          []Share{{"a", 0}},
			want:            map[string]int64{"a": 0},
			wantUnallocated: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unallocated, err := ProRata(tt.total, tt.shares, tt.capFor)
			if err != nil {
				t.Fatalf("ProRata() error = %v", err)
			}
			if unallocated != tt.wantUnallocated {
				t.Errorf("unallocated = %d, want %d", unallocated, tt.wantUnallocated)
			}
			var sum int64
			for _, a := range got {
				sum += a.Amount
				if a.Amount != tt.want[a.Key] {
					t.Errorf("%s = %d, want %d", a.Key, a.Amount, tt.want[a.Key])
				}
			}
			if sum+unallocated != tt.total {
				t.Errorf("allocations sum to %d + %d, want %d", sum, unallocated, tt.total)
			}
		})
	}
}

func TestProRataRejectsNegativeInput(t *testing.T) {
	if _, _, err := ProRata(-1, []Share{{"a", 1}}, nil); err == nil {
		t.Error("expected error for negative total")
	}
	if _, _, err := ProRata(10, []Share{{"a", -1}}, nil); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestProRataLargeAmounts(t *testing.T) {
	// total × 3 does not fit in an int64.
	const total = 4_000_000_000_000_000_001
	got, unallocated, err := ProRata(total, []Share{{"a", 3}, {"b", 1}}, nil)
	if err != nil {
		t.Fatalf("ProRata failed: %v", err)
	}
	if unallocated != 0 {
		t.Errorf("Expected everything allocated, got %d left", unallocated)
	}
	if got[0].Amount != 3_000_000_000_000_000_001 {
		t.Errorf("a = %d, want 3000000000000000001", got[0].Amount)
	}
	if got[1].Amount != 1_000_000_000_000_000_000 {
		t.Errorf("b = %d, want 1000000000000000000", got[1].Amount)
	}
}
