package util

import "crypto/rand"

const charsetLC = "0123456789abcdefghijklmnopqrstuvwxyz"

func randStr(n int, cs string) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = cs[b%byte(len(cs))]
	}
	return string(buf)
}

// RandStringLC returns n random lower-case alphanumeric characters.
func RandStringLC(n int) string {
	return randStr(n, charsetLC)
}
