package storage

import (
	"cmp"

	"github.com/rhuss/scribe/pkg/api"
)

// ComparePosts orders posts by creation time, then by ID bytewise. Every
// adapter lists posts in this order.
func ComparePosts(a, b *api.Post) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
