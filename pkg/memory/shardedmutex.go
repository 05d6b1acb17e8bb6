package memory

import (
	"hash/fnv"
	"sync"
)

// shardedMutex gives constant-overhead pessimistic per-id serialization: a
// fixed-size array of mutexes indexed by a hash of the id, so concurrent
// writes to different ids rarely contend while writes to the same id are
// strictly ordered. No specific library precedent in the corpus for
// sharding-by-id; generalized from the general sync.Mutex/RWMutex usage
// pattern found throughout the teacher's manager and cron service.
type shardedMutex struct {
	shards []sync.Mutex
}

const shardCount = 256

func newShardedMutex() *shardedMutex {
	return &shardedMutex{shards: make([]sync.Mutex, shardCount)}
}

func (s *shardedMutex) shardFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Lock acquires the mutex for id, blocking until available.
func (s *shardedMutex) Lock(id string) {
	s.shardFor(id).Lock()
}

// Unlock releases the mutex for id.
func (s *shardedMutex) Unlock(id string) {
	s.shardFor(id).Unlock()
}
