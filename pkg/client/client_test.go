package client

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrcamilo11/godfs/internal/rpctransport"
	"github.com/hrcamilo11/godfs/pkg/coordinator"
	"github.com/hrcamilo11/godfs/pkg/worker"
)

// newTestSystem starts a real coordinator and n real workers over
// loopback net/rpc, wires the workers' registration against the
// coordinator, and returns a Client pointed at it.
func newTestSystem(t *testing.T, n int, blockSize int64) *Client {
	t.Helper()
	cfg := coordinator.DefaultConfig()
	cfg.BlockSize = blockSize
	c := coordinator.New(cfg, nil, nil)

	cl, err := rpctransport.ListenAndServe("127.0.0.1:0", "Server", coordinator.NewServer(c))
	require.NoError(t, err)
	t.Cleanup(func() { cl.Close() })
	coordinatorAddr := cl.Addr().String()

	for i := 0; i < n; i++ {
		w, err := worker.New(worker.Config{
			ID:                "w" + string(rune('1'+i)),
			DataDir:           t.TempDir(),
			CoordinatorAddr:   coordinatorAddr,
			HeartbeatInterval: time.Second,
		})
		require.NoError(t, err)

		wl, err := rpctransport.ListenAndServe("127.0.0.1:0", "WorkerServer", worker.NewServer(w))
		require.NoError(t, err)
		t.Cleanup(func() { wl.Close() })

		w.SetAdvertiseAddr(wl.Addr().String())
		require.NoError(t, w.Register())
	}

	return New(coordinatorAddr, blockSize)
}

func TestPutGetEmptyFile(t *testing.T) {
	cl := newTestSystem(t, 3, 64*1024*1024)
	require.NoError(t, cl.Login("alice"))

	dir := t.TempDir()
	src := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(src, nil, 0644))

	require.NoError(t, cl.Put(src, "/a.txt", "alice"))

	out := filepath.Join(dir, "out.txt")
	require.NoError(t, cl.Get("/a.txt", out, "alice"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, data, 0)
}

func TestPutGetSingleBlockRoundTrip(t *testing.T) {
	cl := newTestSystem(t, 3, 64*1024*1024)
	require.NoError(t, cl.Login("alice"))

	dir := t.TempDir()
	src := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(src, []byte("abcdefghij"), 0644))

	require.NoError(t, cl.Put(src, "/f.txt", "alice"))

	out := filepath.Join(dir, "out.txt")
	require.NoError(t, cl.Get("/f.txt", out, "alice"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, bytes.Equal([]byte("abcdefghij"), data))
}

func TestPutGetTwoBlockCrossesBoundary(t *testing.T) {
	cl := newTestSystem(t, 3, 1024)
	require.NoError(t, cl.Login("alice"))

	payload := bytes.Repeat([]byte("x"), 1500)
	dir := t.TempDir()
	src := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(src, payload, 0644))

	require.NoError(t, cl.Put(src, "/f.bin", "alice"))

	out := filepath.Join(dir, "out.bin")
	require.NoError(t, cl.Get("/f.bin", out, "alice"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, data))
}
