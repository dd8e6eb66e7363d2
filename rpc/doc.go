// Package rpc synthesizes request/response calls on top of the fire-and-forget
// pub/sub bus.
//
// # Overview
//
// A Listener owns a function registry for one server id and answers calls
// published to that id's call topics. A Caller publishes call messages,
// correlates replies through per-call callback ids, and turns the outcome
// into an ordinary Go return: the decoded result, or a structured error
// from the errors package.
//
// The bus gives no delivery guarantees, so the protocol leans on two
// signals instead: the subscriber count a publish reports (zero means
// nobody can ever answer, surfaced immediately as BACKEND_DOWN), and a
// per-call timeout for every other silence.
//
// # Topics
//
// Calls and replies ride on a fixed four-segment scheme:
//
//	/remotify/<serverId>/call/<functionName>   call topic
//	/remotify/<serverId>/callback/<callerId>   reply topic
//
// A Listener holds one pattern subscription covering all call topics of
// its server id. A Caller holds one subscription on its own reply topic.
// Traffic that does not parse, or that carries an unknown callback id,
// is ignored.
//
// # Usage
//
// Server side:
//
//	l, _ := rpc.NewListener(b, "calc")
//	l.Register("add", func(ctx context.Context, args rpc.Args) (any, error) {
//	    a, _ := args.Float(0)
//	    b, _ := args.Float(1)
//	    return a + b, nil
//	})
//	l.Start(ctx)
//	defer l.Stop()
//
// Client side:
//
//	c, _ := rpc.NewCaller(ctx, b, "calc")
//	defer c.Close()
//	sum, err := c.Call(ctx, "add", 2, 3)
//
// # Forwarding
//
// A Forwarder maps a set of local names onto remote calls, so a remote
// capability can be handed around as plain Go functions. The set is fixed
// at construction: explicitly by name, derived from an interface type, or
// open-ended behind a reserved-name deny list.
package rpc
