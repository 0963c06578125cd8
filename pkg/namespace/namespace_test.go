package namespace

import (
	"testing"

	"github.com/hrcamilo11/godfs/internal/errs"
	"github.com/hrcamilo11/godfs/internal/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func canon(t *testing.T, user, raw string) string {
	t.Helper()
	p, err := pathutil.Canon(user, raw)
	require.NoError(t, err)
	return p
}

func TestDirectoryLifecycle(t *testing.T) {
	ns := New()
	d := canon(t, "alice", "/d")

	require.NoError(t, ns.Mkdir("alice", d))
	err := ns.Mkdir("alice", d)
	assert.True(t, errs.Is(err, errs.AlreadyExists))

	f := canon(t, "alice", "/d/f")
	require.NoError(t, ns.AddFile("alice", f, []string{"b1"}))

	err = ns.Rmdir("alice", d)
	assert.True(t, errs.Is(err, errs.NotEmpty))

	_, err = ns.RemoveFile("alice", f)
	require.NoError(t, err)

	require.NoError(t, ns.Rmdir("alice", d))
}

func TestMoveSubtree(t *testing.T) {
	ns := New()
	require.NoError(t, ns.Mkdir("alice", canon(t, "alice", "/a")))
	require.NoError(t, ns.Mkdir("alice", canon(t, "alice", "/a/b")))
	require.NoError(t, ns.AddFile("alice", canon(t, "alice", "/a/b/c.txt"), []string{"B1"}))

	final, err := ns.Move("alice", canon(t, "alice", "/a"), canon(t, "alice", "/x"))
	require.NoError(t, err)
	assert.Equal(t, canon(t, "alice", "/x"), final)

	items := ns.Ls("alice", canon(t, "alice", "/x/b"))
	require.Len(t, items, 1)
	assert.Equal(t, "c.txt", items[0].Name)

	blocks, err := ns.GetFileBlocks("alice", canon(t, "alice", "/x/b/c.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, blocks)
}

func TestMoveIntoSelfForbidden(t *testing.T) {
	ns := New()
	a := canon(t, "alice", "/a")
	require.NoError(t, ns.Mkdir("alice", a))
	require.NoError(t, ns.Mkdir("alice", canon(t, "alice", "/a/b")))

	_, err := ns.Move("alice", a, canon(t, "alice", "/a/b"))
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestMoveRootForbidden(t *testing.T) {
	ns := New()
	root := pathutil.Root("alice")
	_, err := ns.Move("alice", root, canon(t, "alice", "/x"))
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestPathCanonicalizationIdempotentAndEquivalent(t *testing.T) {
	ns := New()
	require.NoError(t, ns.Mkdir("alice", canon(t, "alice", "/a/b")))

	p1 := canon(t, "alice", "//a/./b/../b/")
	p2 := canon(t, "alice", "/a/b")
	assert.Equal(t, p2, p1)

	doubleCanon, err := pathutil.Canon("alice", p1)
	require.NoError(t, err)
	assert.Equal(t, p1, doubleCanon)
}

func TestUserIsolation(t *testing.T) {
	ns := New()
	require.NoError(t, ns.AddFile("alice", canon(t, "alice", "/a.txt"), []string{"A1"}))
	require.NoError(t, ns.AddFile("bob", canon(t, "bob", "/a.txt"), []string{"B1"}))

	aliceRoot := pathutil.Root("alice")
	bobRoot := pathutil.Root("bob")

	aliceItems := ns.Ls("alice", aliceRoot)
	bobItems := ns.Ls("bob", bobRoot)

	require.Len(t, aliceItems, 1)
	require.Len(t, bobItems, 1)

	aliceBlocks, err := ns.GetFileBlocks("alice", canon(t, "alice", "/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, aliceBlocks)

	bobBlocks, err := ns.GetFileBlocks("bob", canon(t, "bob", "/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, bobBlocks)
}
