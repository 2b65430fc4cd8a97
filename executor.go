package ernie

import (
	"context"
)

// execute performs one worker invocation off the dispatcher's serialization
// path. Whatever the outcome — transport failure, dead client, a panicking
// transport — the leased asset is returned, an asset-freed event is raised,
// and the client connection is closed, each exactly once.
func (d *Dispatcher) execute(req *Request, asset Asset) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Interface("panic", r).
				Str("request", req.ID.String()).
				Msg("worker task panicked")
		}
		d.pools.Return(req.PoolID, asset)
		d.assetFreed()
		req.Close()
	}()

	resp, err := d.transport.Invoke(context.Background(), asset, req.Action.Raw)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("request", req.ID.String()).
			Str("module", req.Action.Module).
			Str("function", req.Action.Function).
			Msg("worker invocation failed")
		return
	}

	if req.Action.Kind != KindCall {
		// Cast: the client was acknowledged and closed before dispatch; the
		// invocation only had to finish before the slot is reused.
		return
	}

	// Forward the worker's encoded response verbatim.
	if err := req.Reply(resp); err != nil {
		// The client may have gone away while the request was queued or in
		// flight; not fatal.
		d.logger.Debug().
			Err(err).
			Str("request", req.ID.String()).
			Msg("writing call response")
	}
}
