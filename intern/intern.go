// Package intern implements the dedup pools for call stacks and strings
// that the capture protocol interns to avoid re-transmitting repeated
// values, plus the "first-seen" notification bookkeeping a Listener needs.
package intern

import (
	"encoding/binary"
	"log"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// MaxStackDepth bounds the number of frames a CallStack records, matching
// the fixed-depth array the source uses for its call stacks.
const MaxStackDepth = 1024

// CallStack is a fixed-depth capture of PCs plus the thread it was
// sampled from.
type CallStack struct {
	Data     []uint64
	Depth    uint32
	ThreadID uint32
}

// NewCallStack copies frames (truncated to MaxStackDepth) into a new
// CallStack for threadID.
func NewCallStack(threadID uint32, frames []uint64) *CallStack {
	depth := len(frames)
	if depth > MaxStackDepth {
		depth = MaxStackDepth
	}
	data := make([]uint64, depth)
	copy(data, frames[:depth])
	return &CallStack{Data: data, Depth: uint32(depth), ThreadID: threadID}
}

// Hash returns a 64-bit content hash over (depth, data[0:depth]). Two
// stacks with identical depth and data always hash equal.
func (cs *CallStack) Hash() uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], cs.Depth)
	h.Write(buf[:4])
	for i := uint32(0); i < cs.Depth && int(i) < len(cs.Data); i++ {
		binary.LittleEndian.PutUint64(buf[:], cs.Data[i])
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Clone returns a deep copy, used when building a resolved stack from a
// raw one so the raw pool's entries stay untouched.
func (cs *CallStack) Clone() *CallStack {
	data := make([]uint64, len(cs.Data))
	copy(data, cs.Data)
	return &CallStack{Data: data, Depth: cs.Depth, ThreadID: cs.ThreadID}
}

// Listener receives first-sight notifications for interned values.
type Listener interface {
	OnCallstack(cs *CallStack)
	OnKeyAndString(hash uint64, s string)
}

// Pools holds the two interning dictionaries -- hash->CallStack and
// hash->string -- plus the "seen" sets that ensure each hash's listener
// notification fires at most once per capture.
type Pools struct {
	Listener Listener

	mu          sync.RWMutex
	stacks      map[uint64]*CallStack
	strings     map[uint64]string
	seenStacks  map[uint64]bool
	seenStrings map[uint64]bool
}

// New returns an empty set of interning pools.
func New() *Pools {
	return &Pools{
		stacks:      make(map[uint64]*CallStack),
		strings:     make(map[uint64]string),
		seenStacks:  make(map[uint64]bool),
		seenStrings: make(map[uint64]bool),
	}
}

// InternCallstack inserts cs under key, overwriting (with a logged error)
// any previous value at that key.
func (p *Pools) InternCallstack(key uint64, cs *CallStack) {
	p.mu.Lock()
	if _, exists := p.stacks[key]; exists {
		log.Printf("ERROR: intern: callstack key %d already interned, overwriting", key)
	}
	p.stacks[key] = cs
	firstSight := !p.seenStacks[key]
	p.seenStacks[key] = true
	p.mu.Unlock()

	if firstSight && p.Listener != nil {
		p.Listener.OnCallstack(cs)
	}
}

// InternString inserts value under key, same overwrite policy as
// InternCallstack.
func (p *Pools) InternString(key uint64, value string) {
	p.mu.Lock()
	if _, exists := p.strings[key]; exists {
		log.Printf("ERROR: intern: string key %d already interned, overwriting", key)
	}
	p.strings[key] = value
	firstSight := !p.seenStrings[key]
	p.seenStrings[key] = true
	p.mu.Unlock()

	if firstSight && p.Listener != nil {
		p.Listener.OnKeyAndString(key, value)
	}
}

// Stack looks up a previously interned call stack by hash.
func (p *Pools) Stack(key uint64) (*CallStack, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cs, ok := p.stacks[key]
	return cs, ok
}

// String looks up a previously interned string by hash.
func (p *Pools) String(key uint64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.strings[key]
	return s, ok
}

// InternCallstackValue computes cs's content hash, interns it if this is
// the first time it's been seen (firing the listener exactly once), and
// returns the hash either way. This is the path CallstackSample events
// that carry inline frames (rather than a pool key) go through.
func (p *Pools) InternCallstackValue(cs *CallStack) uint64 {
	hash := cs.Hash()
	p.mu.Lock()
	if _, exists := p.stacks[hash]; !exists {
		p.stacks[hash] = cs
	}
	firstSight := !p.seenStacks[hash]
	p.seenStacks[hash] = true
	p.mu.Unlock()

	if firstSight && p.Listener != nil {
		p.Listener.OnCallstack(cs)
	}
	return hash
}

// InternStringValue computes s's content hash, interns it if this is the
// first time it's been seen (firing the listener exactly once), and
// returns the hash either way. This is the path GPU pipeline-stage labels
// and other inline (non-keyed) strings go through.
func (p *Pools) InternStringValue(s string) uint64 {
	hash := xxhash.Sum64String(s)
	p.mu.Lock()
	if _, exists := p.strings[hash]; !exists {
		p.strings[hash] = s
	}
	firstSight := !p.seenStrings[hash]
	p.seenStrings[hash] = true
	p.mu.Unlock()

	if firstSight && p.Listener != nil {
		p.Listener.OnKeyAndString(hash, s)
	}
	return hash
}
