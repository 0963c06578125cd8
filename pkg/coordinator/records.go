package coordinator

import (
	"encoding/json"

	"github.com/hrcamilo11/godfs/internal/errs"
)

// Record payloads logged to the WAL and replayed on startup. Only
// namespace-shaping mutations are logged; AllocateBlocks/placement state
// is intentionally not replayed; a coordinator restart always loses the
// block-location map and worker table; see the spec's non-goal on
// metadata persistence. Only the namespace tree itself survives, which is
// enough to replay the shape of Mkdir/AddFile/Move/Remove history.
type mkdirRecord struct {
	User string
	Path string
}

type rmdirRecord struct {
	User string
	Path string
}

type addFileRecord struct {
	User     string
	Path     string
	BlockIDs []string
}

type removeFileRecord struct {
	User string
	Path string
}

type moveRecord struct {
	User string
	Src  string
	Dst  string
}

// Replay rebuilds the namespace tree from the WAL, if one is configured.
// It must be called before the RPC server starts accepting requests.
func (c *Coordinator) Replay() error {
	if c.wal == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wal.Replay(func(op string, data json.RawMessage) error {
		switch op {
		case "Mkdir":
			var r mkdirRecord
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			return ignoreAlreadyExists(c.ns.Mkdir(r.User, r.Path))
		case "Rmdir":
			var r rmdirRecord
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			return ignoreNotFound(c.ns.Rmdir(r.User, r.Path))
		case "AddFile":
			var r addFileRecord
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			return c.ns.AddFile(r.User, r.Path, r.BlockIDs)
		case "RemoveFile":
			var r removeFileRecord
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			_, err := c.ns.RemoveFile(r.User, r.Path)
			return ignoreNotFound(err)
		case "Move":
			var r moveRecord
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			_, err := c.ns.Move(r.User, r.Src, r.Dst)
			return ignoreNotFound(err)
		}
		return nil
	})
}

func ignoreAlreadyExists(err error) error {
	if errs.Is(err, errs.AlreadyExists) {
		return nil
	}
	return err
}

func ignoreNotFound(err error) error {
	if errs.Is(err, errs.NotFound) {
		return nil
	}
	return err
}
