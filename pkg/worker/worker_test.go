package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrcamilo11/godfs/internal/errs"
	"github.com/hrcamilo11/godfs/internal/rpctransport"
	"github.com/hrcamilo11/godfs/pkg/rpcapi"
)

func newTestWorker(t *testing.T, id string) *Worker {
	t.Helper()
	w, err := New(Config{ID: id, DataDir: t.TempDir(), HeartbeatInterval: time.Second})
	require.NoError(t, err)
	return w
}

func TestStoreAndGetBlockRoundTrip(t *testing.T) {
	w := newTestWorker(t, "w1")
	require.NoError(t, w.StoreBlock("b1", []byte("abcdefghij"), nil))

	content, err := w.GetBlock("b1")
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdefghij"), content)
}

func TestGetBlockNotFound(t *testing.T) {
	w := newTestWorker(t, "w1")
	_, err := w.GetBlock("missing")
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestStoreBlockFansOutToSecondaries(t *testing.T) {
	primary := newTestWorker(t, "w1")
	secondary := newTestWorker(t, "w2")

	secondaryServer := NewServer(secondary)
	l, err := rpctransport.ListenAndServe("127.0.0.1:0", "WorkerServer", secondaryServer)
	require.NoError(t, err)
	defer l.Close()

	replicas := []rpcapi.Replica{
		{WorkerID: "w1", Addr: "unused-primary-is-local"},
		{WorkerID: "w2", Addr: l.Addr().String()},
	}
	require.NoError(t, primary.StoreBlock("b1", []byte("payload"), replicas))

	// StoreBlock forwards synchronously and waits for the secondary's
	// reply before returning, so the block is already stored there;
	// Eventually only bounds the check.
	require.Eventually(t, func() bool {
		content, err := secondary.GetBlock("b1")
		return err == nil && string(content) == "payload"
	}, time.Second, 10*time.Millisecond)
}

func TestStoreBlockWithEmptyReplicaListDoesNotForward(t *testing.T) {
	w := newTestWorker(t, "w1")
	require.NoError(t, w.StoreBlock("b1", []byte("x"), nil))
	content, err := w.GetBlock("b1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), content)
}
