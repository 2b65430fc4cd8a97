package ernie

import (
	"fmt"
)

// Admin command names accepted on the reserved __admin__ module.
const (
	adminReloadHandlers = "reload_handlers"
	adminStats          = "stats"
)

// handleAdmin services an administrative call inline, bypassing admission
// entirely. The reply is always a {reply, <<...>>} term; the caller closes
// the connection afterwards.
func (s *Server) handleAdmin(req *Request, msg Message) {
	var payload string

	switch msg.Function {
	case adminReloadHandlers:
		if err := s.pools.Reload(); err != nil {
			s.logger.Error().Err(err).Msg("reloading handler pools")
		}
		payload = "Handlers reloaded."
	case adminStats:
		payload = fmt.Sprintf(
			"connections.total=%d\nworkers.idle=%d\nconnections.pending=%d\n",
			s.dispatcher.Dispatched(),
			s.pools.IdleCount(),
			s.dispatcher.PendingLen(),
		)
	default:
		payload = "Admin command not supported."
	}

	frame, err := EncodeReply(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("command", msg.Function).Msg("encoding admin reply")
		return
	}

	if err := req.Reply(frame); err != nil {
		s.logger.Debug().Err(err).Str("request", req.ID.String()).Msg("writing admin reply")
	}
}
