package handlers

import "testing"

func TestParseLimit(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"empty falls back to default", "", defaultEventLimit},
		{"garbage falls back to default", "abc", defaultEventLimit},
		{"zero falls back to default", "0", defaultEventLimit},
		{"negative falls back to default", "-5", defaultEventLimit},
		{"in range passes through", "37", 37},
		{"at the cap passes through", "100", maxEventLimit},
		{"over the cap is clamped", "5000", maxEventLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseLimit(tc.raw); got != tc.want {
				t.Fatalf("parseLimit(%q) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}
