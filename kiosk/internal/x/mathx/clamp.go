package mathx

import "golang.org/x/exp/constraints"

// Clamp ограничивает v диапазоном [lo, hi]. Если lo > hi, границы меняются местами.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between сообщает, лежит ли v в [lo, hi] включительно.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// OpenBetween сообщает, лежит ли v строго внутри (lo, hi).
func OpenBetween[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v > lo && v < hi
}
