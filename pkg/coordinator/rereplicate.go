package coordinator

import (
	"time"

	"github.com/hrcamilo11/godfs/internal/events"
	"github.com/hrcamilo11/godfs/internal/metrics"
	"github.com/hrcamilo11/godfs/internal/rpctransport"
	"github.com/hrcamilo11/godfs/pkg/rpcapi"
)

// StartReReplication launches the background scan loop in its own
// goroutine, grounded on the teacher's scheduler.Scheduler.run: a ticker
// driving a single mutex-guarded pass, with errors logged rather than
// fatal. Unlike the scheduler, which only rewrites desired-state records,
// this loop actually ships block bytes between workers before updating
// BlockLocationMap, per the rewrite's resolution of the spec's open
// question on re-replication.
func (c *Coordinator) StartReReplication() {
	go c.reReplicationLoop()
}

func (c *Coordinator) reReplicationLoop() {
	ticker := time.NewTicker(c.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.reReplicationScan()
		case <-c.stopCh:
			return
		}
	}
}

// reReplicationScan performs one scan-and-patch pass. It holds the
// coordinator's lock for its entire duration, including the outbound RPCs
// that copy block bytes: this is the coarse-locking discipline the spec
// calls out explicitly (RPCs issued during the pass simply block).
func (c *Coordinator) reReplicationScan() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	liveSet := make(map[string]struct{})
	for _, id := range c.liveWorkerIDs(now) {
		liveSet[id] = struct{}{}
	}

	totalDeficit := 0
	for blockID, holders := range c.blockLocations {
		liveHolders := make([]string, 0, len(holders))
		for _, wID := range holders {
			if _, ok := liveSet[wID]; ok {
				liveHolders = append(liveHolders, wID)
			}
		}
		deficit := c.cfg.ReplicationFactor - len(liveHolders)
		if deficit > 0 {
			totalDeficit += deficit
		}
		if deficit <= 0 || len(liveHolders) == 0 {
			// Nothing to do, or no live replica exists to copy bytes
			// from; the latter is a genuine data-loss case the scan
			// cannot repair and will retry next cycle if a holder
			// comes back.
			continue
		}

		already := make(map[string]struct{}, len(holders))
		for _, wID := range holders {
			already[wID] = struct{}{}
		}
		targets := c.chooseWorkers(c.liveWorkerIDs(now), deficit, already)

		source := liveHolders[0]
		sourceAddr := c.workers[source].Addr
		for _, target := range targets {
			targetAddr := c.workers[target].Addr
			if err := copyBlock(sourceAddr, targetAddr, blockID); err != nil {
				metrics.ReReplicationCopies.WithLabelValues("failed").Inc()
				c.logger.Warn().
					Err(err).
					Str("block_id", blockID).
					Str("source", source).
					Str("target", target).
					Msg("re-replication copy failed")
				continue
			}
			metrics.ReReplicationCopies.WithLabelValues("succeeded").Inc()
			c.blockLocations[blockID] = append(c.blockLocations[blockID], target)
			c.workers[target].HeldBlocks[blockID] = struct{}{}
			c.logger.Info().
				Str("block_id", blockID).
				Str("source", source).
				Str("target", target).
				Msg("re-replicated block")
			if c.broker != nil {
				c.broker.Publish(&events.Event{
					Type:    events.BlockReReplicated,
					Message: blockID,
					Fields:  map[string]string{"source": source, "target": target},
				})
			}
		}
	}

	metrics.ReReplicationCycles.Inc()
	metrics.WorkersLive.Set(float64(len(liveSet)))
	metrics.BlockReplicaDeficit.Set(float64(totalDeficit))
	if c.broker != nil {
		c.broker.Publish(&events.Event{Type: events.ReReplicationCycle})
	}
}

// copyBlock fetches block bytes from source and stores them on target,
// the concrete "ship the bytes" step the source implementation this
// system is modeled on only logged and never performed.
func copyBlock(sourceAddr, targetAddr, blockID string) error {
	var getReply rpcapi.GetBlockReply
	if err := rpctransport.Call(sourceAddr, "WorkerServer.GetBlock", rpcapi.GetBlockArgs{BlockID: blockID}, &getReply); err != nil {
		return err
	}
	var storeReply rpcapi.StoreBlockReply
	storeArgs := rpcapi.StoreBlockArgs{
		BlockID: blockID,
		Content: getReply.Content,
		Replicas: []rpcapi.Replica{
			{Addr: targetAddr},
		},
	}
	return rpctransport.Call(targetAddr, "WorkerServer.StoreBlock", storeArgs, &storeReply)
}
