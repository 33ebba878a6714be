package transfer

import "sync"

type shape struct {
	batchSize  int
	treeHeight int
}

// systemEntry builds its System exactly once; concurrent callers of the
// same shape wait on the build, callers of other shapes do not.
type systemEntry struct {
	once sync.Once
	sys  *System
	err  error
}

var (
	systemsMu sync.Mutex
	systems   = make(map[shape]*systemEntry)
)

// SystemFor returns the compiled proving system for the given shape,
// building and caching it on first use. Circuit construction is
// deterministic per shape, so finalizations of equal-sized batches reuse
// the same constraint system and keys instead of recompiling. The map
// lock only guards entry lookup; compile and setup run under the entry's
// own Once, so distinct shapes build concurrently.
func SystemFor(batchSize, treeHeight int) (*System, error) {
	key := shape{batchSize: batchSize, treeHeight: treeHeight}
	systemsMu.Lock()
	entry, ok := systems[key]
	if !ok {
		entry = &systemEntry{}
		systems[key] = entry
	}
	systemsMu.Unlock()
	entry.once.Do(func() {
		entry.sys, entry.err = NewSystem(batchSize, treeHeight)
	})
	return entry.sys, entry.err
}
