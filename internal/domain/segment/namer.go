package segment

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Namer hands out collision-free segment file names. Names already
// reserved during this run are tracked in memory; names left by
// earlier runs are detected by probing the filesystem, so re-running
// against a populated output directory continues numbering instead of
// overwriting. Probe and reserve happen under one mutex, which is the
// only thing that makes concurrent extraction into the same directory
// safe.
type Namer struct {
	mu       sync.Mutex
	reserved map[string]struct{}
}

func NewNamer() *Namer {
	return &Namer{reserved: make(map[string]struct{})}
}

// Reserve returns the full path for the next free index of
// prefix+base+"_"+label and marks it taken. The index starts at 0 and
// increments until neither the reservation set nor the filesystem
// knows the candidate.
func (n *Namer) Reserve(dir, prefix, base, label, sep, ext string) (path string, index int) {
	stem := prefix + base + "_" + label

	n.mu.Lock()
	defer n.mu.Unlock()

	for i := 0; ; i++ {
		candidate := filepath.Join(dir, stem+sep+strconv.Itoa(i)+ext)
		if _, taken := n.reserved[candidate]; taken {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			// Left over from a previous run; never overwrite.
			n.reserved[candidate] = struct{}{}
			continue
		}
		n.reserved[candidate] = struct{}{}
		return candidate, i
	}
}

// Release frees a reservation whose write failed, so the name can be
// retried by a later segment.
func (n *Namer) Release(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.reserved, path)
}
