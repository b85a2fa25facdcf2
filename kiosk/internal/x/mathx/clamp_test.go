package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 1, 3); got != 3 {
		t.Errorf("Clamp(5,1,3) = %d, want 3", got)
	}
	if got := Clamp(-1, 1, 3); got != 1 {
		t.Errorf("Clamp(-1,1,3) = %d, want 1", got)
	}
	// Перепутанные границы
	if got := Clamp(2.5, 3.0, 1.0); got != 2.5 {
		t.Errorf("Clamp with swapped bounds = %f, want 2.5", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(3, 1, 3) {
		t.Error("Between must include upper bound")
	}
	if OpenBetween(250.0, 0, 250) {
		t.Error("OpenBetween must exclude upper bound")
	}
	if !OpenBetween(249.9, 0, 250) {
		t.Error("249.9 must be inside (0, 250)")
	}
}
