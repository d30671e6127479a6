package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	postIDLength = 20
	charset      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// postIDPattern accepts generated IDs as well as IDs minted by an external
// document store, which may use '-' and '_'.
var postIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// NewPostID generates a document identifier of 20 cryptographically random
// alphanumeric characters.
func NewPostID() string {
	return randomAlphanumeric(postIDLength)
}

// ValidatePostID reports whether id is acceptable as a post path parameter.
func ValidatePostID(id string) bool {
	return postIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
