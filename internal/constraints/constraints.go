// Package constraints holds type constraints shared by the generic helpers.
package constraints

// Byteseq matches the string-like types: plain strings and byte slices.
type Byteseq interface {
	~string | ~[]byte
}
