package util

import "crypto/rand"

const lcCharset = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandStringLC returns a random lower-case alphanumeric string of n bytes.
func RandStringLC(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = lcCharset[b%byte(len(lcCharset))]
	}
	return string(buf)
}
