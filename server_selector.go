package redis

import (
	"github.com/zeebo/xxh3"

	"github.com/pior/redis/internal"
)

// ServerSelector picks the index of the server owning key, in [0, serverCount).
type ServerSelector func(key string, serverCount int) int

// DefaultServerSelector uses Jump Hash over xxh3 for consistent selection:
// adding a server only moves the keys that land on the new one.
func DefaultServerSelector(key string, serverCount int) int {
	return internal.JumpHash(xxh3.HashString(key), serverCount)
}

// staticSelector is used in tests to always select a specific server.
func staticSelector(index int) ServerSelector {
	return func(key string, serverCount int) int {
		return index % serverCount
	}
}
