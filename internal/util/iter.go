package util

import "iter"

// IterFirst returns the first value of seq, if any.
func IterFirst[V any](seq iter.Seq[V]) (V, bool) {
	for v := range seq {
		return v, true
	}
	var v V
	return v, false
}
