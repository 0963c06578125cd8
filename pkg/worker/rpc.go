package worker

import "github.com/hrcamilo11/godfs/pkg/rpcapi"

// Server adapts a Worker to the net/rpc calling convention, mirroring
// coordinator.Server's split between core logic and wire handlers.
type Server struct {
	w *Worker
}

// NewServer wraps a Worker for RPC registration.
func NewServer(w *Worker) *Server { return &Server{w: w} }

func (s *Server) StoreBlock(args rpcapi.StoreBlockArgs, reply *rpcapi.StoreBlockReply) error {
	err := s.w.StoreBlock(args.BlockID, args.Content, args.Replicas)
	reply.Success = err == nil
	if err != nil {
		reply.Message = err.Error()
	} else {
		reply.Message = "ok"
	}
	return nil
}

func (s *Server) GetBlock(args rpcapi.GetBlockArgs, reply *rpcapi.GetBlockReply) error {
	content, err := s.w.GetBlock(args.BlockID)
	reply.Success = err == nil
	reply.Content = content
	if err != nil {
		reply.Message = err.Error()
	} else {
		reply.Message = "ok"
	}
	return nil
}
