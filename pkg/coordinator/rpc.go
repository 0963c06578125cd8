package coordinator

import (
	"github.com/hrcamilo11/godfs/internal/errs"
	"github.com/hrcamilo11/godfs/pkg/rpcapi"
)

// Server adapts a Coordinator to the net/rpc calling convention: every
// exported method takes (Args, *Reply) and returns error, matching the
// teacher's split between core logic (manager.Manager) and the RPC
// handlers that merely translate wire requests into it (pkg/api/server.go).
type Server struct {
	c *Coordinator
}

// NewServer wraps a Coordinator for RPC registration.
func NewServer(c *Coordinator) *Server { return &Server{c: c} }

func (s *Server) Login(args rpcapi.LoginArgs, reply *rpcapi.LoginReply) error {
	err := s.c.Login(args.Username)
	reply.Success = err == nil
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) Logout(args rpcapi.LogoutArgs, reply *rpcapi.LogoutReply) error {
	err := s.c.Logout(args.Username)
	reply.Success = err == nil
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) RegisterWorker(args rpcapi.RegisterWorkerArgs, reply *rpcapi.RegisterWorkerReply) error {
	err := s.c.RegisterWorker(args.WorkerID, args.Addr)
	reply.Success = err == nil
	return nil
}

func (s *Server) Heartbeat(args rpcapi.HeartbeatArgs, reply *rpcapi.HeartbeatReply) error {
	err := s.c.Heartbeat(args.WorkerID)
	reply.Success = err == nil
	return nil
}

func (s *Server) AllocateBlocks(args rpcapi.AllocateBlocksArgs, reply *rpcapi.AllocateBlocksReply) error {
	ids, err := s.c.AllocateBlocks(args.Username, args.FileSize)
	reply.BlockIDs = ids
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) GetBlockLocations(args rpcapi.GetBlockLocationsArgs, reply *rpcapi.GetBlockLocationsReply) error {
	reply.Replicas = s.c.GetBlockLocations(args.BlockID)
	return nil
}

func (s *Server) Mkdir(args rpcapi.MkdirArgs, reply *rpcapi.MkdirReply) error {
	err := s.c.Mkdir(args.Username, args.Path)
	reply.Success = err == nil
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) Rmdir(args rpcapi.RmdirArgs, reply *rpcapi.RmdirReply) error {
	err := s.c.Rmdir(args.Username, args.Path)
	reply.Success = err == nil
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) ListFiles(args rpcapi.ListFilesArgs, reply *rpcapi.ListFilesReply) error {
	items, err := s.c.Ls(args.Username, args.Path)
	reply.Message = messageFor(err)
	if err != nil {
		return nil
	}
	reply.Items = make([]rpcapi.ListItem, 0, len(items))
	for _, it := range items {
		reply.Items = append(reply.Items, rpcapi.ListItem{Name: it.Name, IsDir: it.IsDir, Size: it.Size})
	}
	return nil
}

func (s *Server) AddFile(args rpcapi.AddFileArgs, reply *rpcapi.AddFileReply) error {
	err := s.c.AddFile(args.Username, args.Path, args.BlockIDs)
	reply.Success = err == nil
	reply.Path = args.Path
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) GetFileBlocks(args rpcapi.GetFileBlocksArgs, reply *rpcapi.GetFileBlocksReply) error {
	ids, err := s.c.GetFileBlocks(args.Username, args.Path)
	reply.BlockIDs = ids
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) RemoveFile(args rpcapi.RemoveFileArgs, reply *rpcapi.RemoveFileReply) error {
	err := s.c.RemoveFile(args.Username, args.Path)
	reply.Success = err == nil
	reply.Message = messageFor(err)
	return nil
}

func (s *Server) Move(args rpcapi.MoveArgs, reply *rpcapi.MoveReply) error {
	final, err := s.c.Move(args.Username, args.Src, args.Dst)
	reply.Success = err == nil
	reply.Path = final
	reply.Message = messageFor(err)
	return nil
}

func messageFor(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := err.(*errs.Error); ok {
		return e.Error()
	}
	return err.Error()
}
