package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already normalized", "/apps/page", "/apps/page"},
		{"double slash", "/apps//page", "/apps/page"},
		{"dot segment", "/apps/./page", "/apps/page"},
		{"dot dot segment", "/apps/sub/../page", "/apps/page"},
		{"root", "/", "/"},
		{"collapses to root", "/apps/..", "/"},
		{"escapes root", "/../apps", ""},
		{"relative", "apps/page", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestStorePutAndGet(t *testing.T) {
	store := NewStore([]string{"/apps", "/libs"})

	require.NoError(t, store.Put(NewNode("/apps/page/page.html", "app/page")))

	n, ok := store.Get("/apps/page/page.html")
	require.True(t, ok)
	assert.Equal(t, "page.html", n.Name())
	assert.Equal(t, "page", n.BaseName())
	assert.Equal(t, "html", n.Extension())
	assert.Equal(t, "/apps/page", n.ParentPath())

	_, ok = store.Get("/apps/missing")
	assert.False(t, ok)
}

func TestStorePutRejectsUnnormalizedPath(t *testing.T) {
	store := NewStore(nil)

	assert.Error(t, store.Put(NewNode("apps/page", "app/page")))
	assert.Error(t, store.Put(NewNode("/apps//page", "app/page")))
	assert.Error(t, store.Put(nil))
}

func TestStoreChildren(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Put(NewNode("/apps/page/b.html", "")))
	require.NoError(t, store.Put(NewNode("/apps/page/a.html", "")))
	require.NoError(t, store.Put(NewNode("/apps/page/sub/c.html", "")))

	children := store.Children("/apps/page")
	require.Len(t, children, 2)
	assert.Equal(t, "/apps/page/a.html", children[0].Path)
	assert.Equal(t, "/apps/page/b.html", children[1].Path)
}

func TestStoreSuperTypeOf(t *testing.T) {
	store := NewStore([]string{"/apps", "/libs"})
	require.NoError(t, store.Put(NewNode("/libs/app/page", "app/page").WithSuperType("core/content")))

	assert.Equal(t, "core/content", store.SuperTypeOf("app/page"))
	assert.Equal(t, "", store.SuperTypeOf("app/unknown"))
	assert.Equal(t, "", store.SuperTypeOf("/apps/absolute"))
}

func TestSessionLifecycle(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Put(NewNode("/apps/page", "app/page")))

	sess, err := store.OpenSession("")
	require.NoError(t, err)

	n, ok := sess.ResolveByPath("/apps//page")
	require.True(t, ok)
	assert.Equal(t, "/apps/page", n.Path)

	clone, err := sess.Clone("render")
	require.NoError(t, err)
	assert.True(t, clone.Live())

	require.NoError(t, clone.Close())
	assert.False(t, clone.Live())
	assert.ErrorIs(t, clone.Close(), ErrSessionClosed)

	_, ok = clone.ResolveByPath("/apps/page")
	assert.False(t, ok)

	_, err = clone.Clone("")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionRefreshTracksGeneration(t *testing.T) {
	store := NewStore(nil)
	sess, err := store.OpenSession("")
	require.NoError(t, err)

	assert.False(t, sess.Stale())
	require.NoError(t, store.Put(NewNode("/apps/page", "app/page")))
	assert.True(t, sess.Stale())

	sess.Refresh()
	assert.False(t, sess.Stale())
}

func TestOpenSessionAuthorization(t *testing.T) {
	store := NewStore(nil)
	store.SetAuthorizer(func(impersonation string) error {
		if impersonation == "blocked" {
			return errors.New("access denied")
		}
		return nil
	})

	_, err := store.OpenSession("scripts")
	require.NoError(t, err)

	_, err = store.OpenSession("blocked")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
}
