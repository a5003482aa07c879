package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingListener struct {
	callstacks []*CallStack
	strings    []string
}

func (l *recordingListener) OnCallstack(cs *CallStack) { l.callstacks = append(l.callstacks, cs) }
func (l *recordingListener) OnKeyAndString(hash uint64, s string) {
	l.strings = append(l.strings, s)
}

func TestCallStackHashIsPure(t *testing.T) {
	a := NewCallStack(1, []uint64{0x10, 0x20, 0x30})
	b := NewCallStack(2, []uint64{0x10, 0x20, 0x30})
	assert.Equal(t, a.Hash(), b.Hash())

	c := NewCallStack(1, []uint64{0x10, 0x20, 0x31})
	assert.NotEqual(t, a.Hash(), c.Hash())
}

// Two events with identical inline pcs dedup to one hash and the listener
// fires exactly once.
func TestInternCallstackValueEmitsOnceForDuplicateContent(t *testing.T) {
	l := &recordingListener{}
	p := New()
	p.Listener = l

	cs1 := NewCallStack(7, []uint64{0x1, 0x2})
	cs2 := NewCallStack(7, []uint64{0x1, 0x2})

	h1 := p.InternCallstackValue(cs1)
	h2 := p.InternCallstackValue(cs2)

	assert.Equal(t, h1, h2)
	assert.Len(t, l.callstacks, 1)
}

func TestInternStringEmitsOncePerKey(t *testing.T) {
	l := &recordingListener{}
	p := New()
	p.Listener = l

	p.InternString(42, "hello")
	p.InternString(42, "world") // collision: logged, overwritten

	got, ok := p.String(42)
	assert.True(t, ok)
	assert.Equal(t, "world", got)
	assert.Equal(t, []string{"hello"}, l.strings)
}

func TestInternStringValueEmitsOnceForDuplicateContent(t *testing.T) {
	l := &recordingListener{}
	p := New()
	p.Listener = l

	h1 := p.InternStringValue("sw queue")
	h2 := p.InternStringValue("sw queue")

	assert.Equal(t, h1, h2)
	assert.Equal(t, []string{"sw queue"}, l.strings)
}

func TestInternCallstackCollisionOverwritesLastWriterWins(t *testing.T) {
	p := New()
	cs1 := NewCallStack(1, []uint64{0x1})
	cs2 := NewCallStack(1, []uint64{0x2})

	p.InternCallstack(99, cs1)
	p.InternCallstack(99, cs2)

	got, ok := p.Stack(99)
	assert.True(t, ok)
	assert.Equal(t, cs2, got)
}
