package roll

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		expr  string
		dice  int
		sides int
		ok    bool
	}{
		{"2d6", 2, 6, true},
		{"d20", 1, 20, true},
		{" 3D8 ", 3, 8, true},
		{"0d6", 0, 0, false},
		{"2d1", 0, 0, false},
		{"six", 0, 0, false},
		{"xd6", 0, 0, false},
	}
	for _, tc := range cases {
		dice, sides, err := Parse(tc.expr)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: unexpected err %v", tc.expr, err)
		}
		if tc.ok && (dice != tc.dice || sides != tc.sides) {
			t.Fatalf("%q: got %dd%d", tc.expr, dice, sides)
		}
	}
}

func TestRollUsesInjectedSource(t *testing.T) {
	c := New(WithIntN(func(n int) int { return n - 1 }))
	out, err := c.Commands()["roll"]([]string{"3d4"})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if out != "3d4: 4 + 4 + 4 = 12" {
		t.Fatalf("unexpected output %q", out)
	}
	out, err = c.Commands()["roll"](nil)
	if err != nil || out != "1d6: 6 = 6" {
		t.Fatalf("expected default 1d6, got %q %v", out, err)
	}
}
