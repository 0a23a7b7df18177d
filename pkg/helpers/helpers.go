package helpers

import (
	"flag"
	"math/rand"
)

// PrefixGenerator returns a random suffix for temp table names. Tests get a
// fixed value so that generated SQL stays assertable.
func PrefixGenerator() string {
	if flag.Lookup("test.v") != nil {
		return "abcefghi"
	}

	letters := []rune("abcdefghijklmnopqrstuvwxyz")
	b := make([]rune, 8)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))] //nolint:gosec
	}
	return string(b)
}
