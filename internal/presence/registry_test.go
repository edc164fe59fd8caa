package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	sent   [][]byte
	closed string
}

func (f *fakeConn) Send(p []byte) error { f.sent = append(f.sent, p); return nil }
func (f *fakeConn) Close(reason string) { f.closed = reason }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	c := &fakeConn{}

	replaced := r.Register("u1", c)
	assert.Nil(t, replaced)

	got, ok := r.Lookup("u1")
	assert.True(t, ok)
	assert.Same(t, c, got.(*fakeConn))

	_, ok = r.Lookup("u2")
	assert.False(t, ok)
}

func TestRegistry_LastConnectWins(t *testing.T) {
	r := NewRegistry()
	old := &fakeConn{}
	fresh := &fakeConn{}

	r.Register("u1", old)
	replaced := r.Register("u1", fresh)
	assert.Same(t, old, replaced.(*fakeConn))

	got, ok := r.Lookup("u1")
	assert.True(t, ok)
	assert.Same(t, fresh, got.(*fakeConn))
}

func TestRegistry_GuardedUnregister(t *testing.T) {
	r := NewRegistry()
	old := &fakeConn{}
	fresh := &fakeConn{}

	r.Register("u1", old)
	r.Register("u1", fresh)

	// A late disconnect event from the replaced connection must not remove
	// the newer registration.
	assert.False(t, r.Unregister("u1", old))
	assert.True(t, r.Online("u1"))

	assert.True(t, r.Unregister("u1", fresh))
	assert.False(t, r.Online("u1"))

	// Unregistering a user with no entry is a safe no-op.
	assert.False(t, r.Unregister("u1", fresh))
}

func TestRegistry_ConcurrentLifecycles(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			r.Register("shared", c)
			r.Lookup("shared")
			r.Unregister("shared", c)
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, the registry must end consistent:
	// either empty or holding exactly one live conn for the key.
	if conn, ok := r.Lookup("shared"); ok {
		assert.NotNil(t, conn)
	}
}
