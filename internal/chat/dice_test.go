package chat

import "testing"

func TestParseRoll(t *testing.T) {
	tests := []struct {
		expr    string
		want    Dice
		wantErr bool
	}{
		{expr: "d20", want: Dice{Count: 1, Sides: 20}},
		{expr: "2d6", want: Dice{Count: 2, Sides: 6}},
		{expr: "3d8+2", want: Dice{Count: 3, Sides: 8, Modifier: 2}},
		{expr: " 1d4 - 1 ", want: Dice{Count: 1, Sides: 4, Modifier: -1}},
		{expr: "2D10", want: Dice{Count: 2, Sides: 10}},
		{expr: "", wantErr: true},
		{expr: "banana", wantErr: true},
		{expr: "0d6", wantErr: true},
		{expr: "101d6", wantErr: true},
		{expr: "1d1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseRoll(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestRollTotals(t *testing.T) {
	seq := []int{3, 5}
	i := 0
	fixed := func(int) int {
		v := seq[i]
		i++
		return v
	}

	res := Dice{Count: 2, Sides: 6, Modifier: 1}.Roll(fixed)
	if res.Total != 9 {
		t.Fatalf("total: got %d want 9", res.Total)
	}
	if got, want := res.String(), "2d6+1: [3 5] = 9"; got != want {
		t.Fatalf("String: got %q want %q", got, want)
	}
}

func TestDefaultRollerRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		if v := defaultRoller(6); v < 1 || v > 6 {
			t.Fatalf("roll out of range: %d", v)
		}
	}
}

func TestDiceStringNegative(t *testing.T) {
	if got := (Dice{Count: 1, Sides: 4, Modifier: -1}).String(); got != "1d4-1" {
		t.Fatalf("got %q", got)
	}
}
