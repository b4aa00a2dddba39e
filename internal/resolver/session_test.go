package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolverd/internal/repository"
)

func newTestAffinity(t *testing.T, store *repository.Store) *SessionAffinity {
	t.Helper()
	if store == nil {
		store = repository.NewStore([]string{"/apps"})
	}
	affinity, err := NewSessionAffinity(store, testLogger)
	require.NoError(t, err)
	t.Cleanup(affinity.Close)
	return affinity
}

func TestAcquireOutsideContextReturnsSharedSession(t *testing.T) {
	affinity := newTestAffinity(t, nil)

	a := affinity.Acquire(context.Background())
	b := affinity.Acquire(context.Background())
	assert.Same(t, a, b)
	assert.Same(t, affinity.shared, a)
}

func TestContextSessionIsStableUntilContextEnd(t *testing.T) {
	affinity := newTestAffinity(t, nil)

	ctx := affinity.OnContextStart(context.Background())
	bound := affinity.Acquire(ctx)
	require.NotSame(t, affinity.shared, bound)

	// Every acquire within the context returns the same session.
	assert.Same(t, bound, affinity.Acquire(ctx))

	affinity.OnContextEnd(ctx)
	assert.False(t, bound.Live())

	// After the context ended, acquire degrades to the shared session.
	assert.Same(t, affinity.shared, affinity.Acquire(ctx))
}

func TestOnContextEndWithoutStartIsNoop(t *testing.T) {
	affinity := newTestAffinity(t, nil)
	affinity.OnContextEnd(context.Background())
	assert.True(t, affinity.shared.Live())
}

func TestCloneFailureDegradesToSharedSession(t *testing.T) {
	store := repository.NewStore([]string{"/apps"})
	calls := 0
	store.SetAuthorizer(func(impersonation string) error {
		calls++
		// Let the shared session open, fail every clone afterwards.
		if calls > 1 {
			return errors.New("auth failure")
		}
		return nil
	})

	affinity := newTestAffinity(t, store)

	ctx := affinity.OnContextStart(context.Background())
	assert.Same(t, affinity.shared, affinity.Acquire(ctx))

	// No session was bound, so ending the context is a no-op.
	affinity.OnContextEnd(ctx)
	assert.True(t, affinity.shared.Live())
}

func TestAcquireRefreshesSharedSession(t *testing.T) {
	store := repository.NewStore([]string{"/apps"})
	affinity := newTestAffinity(t, store)

	require.NoError(t, store.Put(repository.NewNode("/apps/page", "app/page")))
	assert.True(t, affinity.shared.Stale())

	affinity.Acquire(context.Background())
	assert.False(t, affinity.shared.Stale())
}

func TestConcurrentSharedAcquire(t *testing.T) {
	store := repository.NewStore([]string{"/apps"})
	affinity := newTestAffinity(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sess := affinity.Acquire(context.Background())
				sess.ResolveByPath("/apps/page")
			}
		}()
	}
	wg.Wait()
}

func TestPerContextSessionsAreIndependent(t *testing.T) {
	affinity := newTestAffinity(t, nil)

	ctx1 := affinity.OnContextStart(context.Background())
	ctx2 := affinity.OnContextStart(context.Background())

	s1 := affinity.Acquire(ctx1)
	s2 := affinity.Acquire(ctx2)
	assert.NotSame(t, s1, s2)

	affinity.OnContextEnd(ctx1)
	assert.False(t, s1.Live())
	assert.True(t, s2.Live())
	affinity.OnContextEnd(ctx2)
	assert.False(t, s2.Live())
}
