// Package worker implements the storage node: an opaque keyed blob store
// on local disk, primary-driven replication fan-out, and the
// registration/heartbeat liveness protocol. It is grounded on the
// teacher's pkg/worker.Worker (register-then-heartbeat-loop daemon
// lifecycle) generalized from running containers to storing blocks.
package worker

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrcamilo11/godfs/internal/errs"
	"github.com/hrcamilo11/godfs/internal/log"
	"github.com/hrcamilo11/godfs/internal/metrics"
	"github.com/hrcamilo11/godfs/internal/rpctransport"
	"github.com/hrcamilo11/godfs/pkg/rpcapi"
)

// Config holds a worker's identity and addressing.
type Config struct {
	ID                string
	DataDir           string
	ListenAddr        string
	AdvertiseAddr     string // address other workers/clients dial; defaults to ListenAddr
	CoordinatorAddr   string
	HeartbeatInterval time.Duration
}

// Worker stores block files under a single storage root and reports its
// own liveness to the coordinator.
type Worker struct {
	cfg    Config
	logger zerolog.Logger
	stopCh chan struct{}
}

// New creates a Worker and ensures its data directory exists.
func New(cfg Config) (*Worker, error) {
	if cfg.AdvertiseAddr == "" {
		cfg.AdvertiseAddr = cfg.ListenAddr
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}
	return &Worker{
		cfg:    cfg,
		logger: log.WithComponent("worker").With().Str("worker_id", cfg.ID).Logger(),
		stopCh: make(chan struct{}),
	}, nil
}

// SetAdvertiseAddr overrides the address reported to the coordinator at
// Register time. Useful when the worker listens on an ephemeral port (":0")
// and only learns its bound address after the RPC listener is created.
func (w *Worker) SetAdvertiseAddr(addr string) {
	w.cfg.AdvertiseAddr = addr
}

func (w *Worker) blockPath(blockID string) string {
	return filepath.Join(w.cfg.DataDir, blockID)
}

// StoreBlock writes content to disk atomically (temp file + rename, so a
// concurrent GetBlock sees either the full payload or nothing), then fans
// out to every other replica in the list with an empty replica list to
// prevent further fan-out. Individual forward failures are logged but do
// not fail the store.
func (w *Worker) StoreBlock(blockID string, content []byte, replicas []rpcapi.Replica) error {
	tmp := w.blockPath(blockID) + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return errs.E("StoreBlock", errs.Internal, err)
	}
	if err := os.Rename(tmp, w.blockPath(blockID)); err != nil {
		return errs.E("StoreBlock", errs.Internal, err)
	}
	metrics.BlocksStored.Inc()
	metrics.BytesStored.Add(float64(len(content)))

	if len(replicas) > 1 {
		for _, r := range replicas[1:] {
			w.forward(blockID, content, r.Addr)
		}
	}
	return nil
}

func (w *Worker) forward(blockID string, content []byte, addr string) {
	var reply rpcapi.StoreBlockReply
	args := rpcapi.StoreBlockArgs{BlockID: blockID, Content: content} // empty Replicas: no further fan-out
	err := rpctransport.Call(addr, "WorkerServer.StoreBlock", args, &reply)
	if err != nil {
		metrics.ForwardsTotal.WithLabelValues("failed").Inc()
		w.logger.Warn().Err(err).Str("block_id", blockID).Str("target", addr).Msg("replication forward failed")
		return
	}
	metrics.ForwardsTotal.WithLabelValues("succeeded").Inc()
}

// GetBlock reads a block's content from disk.
func (w *Worker) GetBlock(blockID string) ([]byte, error) {
	data, err := os.ReadFile(w.blockPath(blockID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.E("GetBlock", blockID, errs.NotFound)
		}
		return nil, errs.E("GetBlock", blockID, errs.Internal, err)
	}
	return data, nil
}

// Register sends this worker's ID and advertise address to the
// coordinator, per the redesign decision that replaced the old
// derive-address-from-ID convention.
func (w *Worker) Register() error {
	var reply rpcapi.RegisterWorkerReply
	args := rpcapi.RegisterWorkerArgs{WorkerID: w.cfg.ID, Addr: w.cfg.AdvertiseAddr}
	return rpctransport.Call(w.cfg.CoordinatorAddr, "Server.RegisterWorker", args, &reply)
}

// StartHeartbeatLoop sends a Heartbeat to the coordinator every
// HeartbeatInterval until Stop is called. Transient send errors are
// swallowed, matching the spec's liveness protocol.
func (w *Worker) StartHeartbeatLoop() {
	go w.heartbeatLoop()
}

func (w *Worker) heartbeatLoop() {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.sendHeartbeat()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) sendHeartbeat() {
	var reply rpcapi.HeartbeatReply
	args := rpcapi.HeartbeatArgs{WorkerID: w.cfg.ID}
	if err := rpctransport.Call(w.cfg.CoordinatorAddr, "Server.Heartbeat", args, &reply); err != nil {
		metrics.HeartbeatFailures.Inc()
		w.logger.Debug().Err(err).Msg("heartbeat failed")
	}
}

// Stop terminates the heartbeat loop.
func (w *Worker) Stop() {
	close(w.stopCh)
}
