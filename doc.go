// Package ernie implements a BERT-RPC admission gateway: a TCP front end
// that decodes length-framed Erlang terms, routes each request by module
// name to an external worker pool, and executes it under a strict
// concurrency cap by leasing worker assets from the pool.
//
// Features:
//   - Frame codec: ReadFrame and WriteFrame handle the 4-byte big-endian
//     length header and payload framing for encoded terms.
//   - Protocol: DecodeMessage classifies inbound terms into call, cast,
//     info, and admin variants; EncodeReply and EncodeNoReply produce the
//     outbound acknowledgement terms.
//   - RouteTable: maps module names to pool identifiers; the first pool
//     to register a module wins on duplicates.
//   - Dispatcher: a single event-ordered goroutine owning the shared
//     pending queue and admission state; requests are leased immediately
//     when a worker is idle, queued otherwise, and re-admitted in FIFO
//     order as workers free up.
//   - PoolManager: hands out worker assets per pool with a non-blocking
//     Lease, plus IdleCount and Reload for the admin surface.
//   - Server: binds the listen address with bounded retry, accepts
//     connections, and runs the per-connection protocol decoder.
//
// Basic usage:
//
//	cfg, err := ernie.LoadConfig("ernie.json")
//	if err != nil {
//	    // handle error
//	}
//	factory := func(addr string) (ernie.Asset, error) {
//	    return net.Dial("tcp", addr)
//	}
//	pools, err := ernie.NewPoolSet(cfg.Pools, factory, logger)
//	if err != nil {
//	    // handle error
//	}
//	srv, err := ernie.NewServer(cfg.Listen, ernie.NewRouteTable(cfg.Pools),
//	    pools, &ernie.ConnTransport{}, nil)
//	if err != nil {
//	    // handle error
//	}
//	go srv.Start()
//	defer srv.Stop()
package ernie
