// Package rpctransport is the thin net/rpc transport shared by the
// coordinator and worker RPC surfaces. The wire serialization framework
// itself is treated as an external collaborator; this package grounds that
// assumption in the standard library's request/response RPC rather than
// fabricating generated protobuf bindings with no .proto/.pb.go source in
// hand.
package rpctransport

import (
	"net"
	"net/rpc"
	"time"
)

// ListenAndServe registers recv's exported methods as RPC handlers under
// the given service name and accepts connections on addr until the
// listener is closed. It returns the listener so the caller can Close it
// to stop serving. The service name is explicit (rather than derived from
// recv's Go type name) so the coordinator and worker servers — both
// named "Server" in their own packages — never collide on the wire.
func ListenAndServe(addr, serviceName string, recv interface{}) (net.Listener, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(serviceName, recv); err != nil {
		return nil, err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go server.ServeConn(conn)
		}
	}()
	return l, nil
}

// Call dials addr, invokes the named method with args, decodes into reply,
// and closes the connection. It is a convenience wrapper for the
// coordinator and worker's outbound calls to each other.
func Call(addr, method string, args, reply interface{}) error {
	client, err := rpc.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Call(method, args, reply)
}

// CallTimeout is Call with a dial timeout: an unreachable peer fails after
// timeout. Only the dial is bounded; once connected, the call waits for
// the reply without a deadline.
func CallTimeout(addr, method string, args, reply interface{}, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	client := rpc.NewClient(conn)
	defer client.Close()
	return client.Call(method, args, reply)
}
