package coordinator

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrcamilo11/godfs/internal/errs"
	"github.com/hrcamilo11/godfs/internal/rpctransport"
	"github.com/hrcamilo11/godfs/internal/wal"
	"github.com/hrcamilo11/godfs/pkg/rpcapi"
	"github.com/hrcamilo11/godfs/pkg/worker"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ScanInterval = 50 * time.Millisecond
	cfg.DeadInterval = 150 * time.Millisecond
	return New(cfg, nil, nil)
}

func startTestWorker(t *testing.T, id string) (*worker.Worker, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := worker.New(worker.Config{ID: id, DataDir: dir, HeartbeatInterval: time.Second})
	require.NoError(t, err)
	l, err := rpctransport.ListenAndServe("127.0.0.1:0", "WorkerServer", worker.NewServer(w))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return w, l.Addr().String()
}

func registerWorkers(t *testing.T, c *Coordinator, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("w%d", i+1)
		_, addr := startTestWorker(t, id)
		require.NoError(t, c.RegisterWorker(id, addr))
		ids = append(ids, id)
	}
	return ids
}

func TestLoginRequiredForNamespaceOps(t *testing.T) {
	c := newTestCoordinator(t)
	err := c.Mkdir("alice", "/d")
	assert.True(t, errs.Is(err, errs.NotLoggedIn))

	require.NoError(t, c.Login("alice"))
	require.NoError(t, c.Mkdir("alice", "/d"))
}

func TestLoginEmptyUsernameInvalid(t *testing.T) {
	c := newTestCoordinator(t)
	err := c.Login("")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestAllocateBlocksRequiresLiveReplicas(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.Login("alice"))

	_, err := c.AllocateBlocks("alice", 10)
	assert.True(t, errs.Is(err, errs.InsufficientReplicas))

	registerWorkers(t, c, 3)
	ids, err := c.AllocateBlocks("alice", 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	replicas := c.GetBlockLocations(ids[0])
	assert.Len(t, replicas, 3)
}

func TestAllocateBlocksExactBlockCount(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.Login("alice"))
	registerWorkers(t, c, 4)

	c.cfg.BlockSize = 1024

	ids, err := c.AllocateBlocks("alice", 1500)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	for _, id := range ids {
		assert.Len(t, c.GetBlockLocations(id), c.cfg.ReplicationFactor)
	}
}

func TestRemoveFileReclaimsBlockLocations(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.Login("alice"))
	registerWorkers(t, c, 3)

	ids, err := c.AllocateBlocks("alice", 10)
	require.NoError(t, err)
	require.NoError(t, c.AddFile("alice", "/a.txt", ids))

	require.NoError(t, c.RemoveFile("alice", "/a.txt"))
	assert.Empty(t, c.GetBlockLocations(ids[0]))

	for _, w := range c.workers {
		_, held := w.HeldBlocks[ids[0]]
		assert.False(t, held)
	}
}

func TestReReplicationRestoresFactorAfterWorkerDeath(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.Login("alice"))
	ids4 := registerWorkers(t, c, 4)

	blockIDs, err := c.AllocateBlocks("alice", 10)
	require.NoError(t, err)
	blockID := blockIDs[0]

	// Write the block's bytes to its three placed workers for real, so the
	// re-replication copy has something to fetch.
	for _, r := range c.GetBlockLocations(blockID) {
		var reply rpcapi.StoreBlockReply
		err := rpctransport.Call(r.Addr, "WorkerServer.StoreBlock", rpcapi.StoreBlockArgs{
			BlockID: blockID,
			Content: []byte("abcdefghij"),
		}, &reply)
		require.NoError(t, err)
	}

	placed := c.GetBlockLocations(blockID)
	require.Len(t, placed, 3)

	// Stop heartbeats from one of the three holders by freezing its
	// LastHeartbeat in the past, beyond the dead interval.
	dead := placed[0].WorkerID
	c.mu.Lock()
	c.workers[dead].LastHeartbeat = time.Now().Add(-time.Hour)
	c.mu.Unlock()

	c.reReplicationScan()

	replicas := c.GetBlockLocations(blockID)
	liveCount := 0
	now := time.Now()
	for _, r := range replicas {
		if c.workers[r.WorkerID].Live(now, c.cfg.DeadInterval) {
			liveCount++
		}
	}
	assert.GreaterOrEqual(t, liveCount, 3)
	assert.Contains(t, workerIDsOf(replicas), ids4[3])
}

func workerIDsOf(replicas []rpcapi.Replica) []string {
	out := make([]string, len(replicas))
	for i, r := range replicas {
		out[i] = r.WorkerID
	}
	return out
}

func TestMoveAndLsAcrossCoordinator(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.Login("alice"))
	registerWorkers(t, c, 3)

	require.NoError(t, c.Mkdir("alice", "/a"))
	require.NoError(t, c.Mkdir("alice", "/a/b"))
	ids, err := c.AllocateBlocks("alice", 10)
	require.NoError(t, err)
	require.NoError(t, c.AddFile("alice", "/a/b/c.txt", ids))

	final, err := c.Move("alice", "/a", "/x")
	require.NoError(t, err)
	assert.Equal(t, "/user/alice/x", final)

	items, err := c.Ls("alice", "/x/b")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c.txt", items[0].Name)
}

func TestWALReplayRebuildsNamespace(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "wal.db")

	w, err := wal.Open(walPath)
	require.NoError(t, err)
	c := New(DefaultConfig(), w, nil)
	require.NoError(t, c.Login("alice"))
	require.NoError(t, c.Mkdir("alice", "/d"))
	require.NoError(t, w.Close())

	w2, err := wal.Open(walPath)
	require.NoError(t, err)
	c2 := New(DefaultConfig(), w2, nil)
	require.NoError(t, c2.Replay())
	require.NoError(t, c2.Login("alice"))

	err = c2.Mkdir("alice", "/d")
	assert.True(t, errs.Is(err, errs.AlreadyExists))
}
