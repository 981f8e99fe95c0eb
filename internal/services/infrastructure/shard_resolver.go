package infrastructure

import (
	"hash/fnv"
)

// ResolveShard maps a user to one of shardCount databases.
func ResolveShard(userID string, shardCount int) int {
	if shardCount <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(shardCount))
}
