package version

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1.9", "1.10", -1},
		{"2.0", "10.0", -1},
		{"1.0", "1.0.1", -1},
		{"1.0.1", "1.0", 1},
		{"1.0-rc1", "1.0-rc2", -1},
		{"1.0-alpha", "1.0-beta", -1},
		{"1.2.3", "1.2.3", 0},
		{"0.9", "1.0", -1},
		{"1.0.0", "1.0", 1},
		{"3-1", "3.1", 0},
		{"1.a", "1.b", -1},
		{"1.1a", "1.2", -1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMax(t *testing.T) {
	if got := Max([]string{"1.0", "1.10", "1.9"}); got != "1.10" {
		t.Errorf("Max = %q, want 1.10", got)
	}
	if got := Max(nil); got != "" {
		t.Errorf("Max(nil) = %q, want empty", got)
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		in  string
		op  Op
		ver string
	}{
		{"", OpAny, ""},
		{"=1.0", OpExact, "1.0"},
		{"1.0", OpExact, "1.0"},
		{">1.0", OpGreater, "1.0"},
		{">=1.0", OpGreaterEqual, "1.0"},
		{" >= 2.1 ", OpGreaterEqual, "2.1"},
	}
	for _, tt := range tests {
		r := ParseRequirement(tt.in)
		if r.Op != tt.op || r.Version != tt.ver {
			t.Errorf("ParseRequirement(%q) = {%q %q}, want {%q %q}", tt.in, r.Op, r.Version, tt.op, tt.ver)
		}
	}
}

func TestRequirementSatisfies(t *testing.T) {
	tests := []struct {
		req  string
		ver  string
		want bool
	}{
		{"", "0.1", true},
		{"=1.0", "1.0", true},
		{"=1.0", "1.0.0", false},
		{"1.0", "1.0", true},
		{">1.0", "1.1", true},
		{">1.0", "1.0", false},
		{">=1.0", "1.0", true},
		{">=1.0", "0.9", false},
		{">=1.9", "1.10", true},
	}
	for _, tt := range tests {
		if got := ParseRequirement(tt.req).Satisfies(tt.ver); got != tt.want {
			t.Errorf("%q.Satisfies(%q) = %v, want %v", tt.req, tt.ver, got, tt.want)
		}
	}
}
