package ernie

import (
	"errors"
	"fmt"

	"github.com/okeuday/erlang_go/v2/erlang"
)

// AdminModule is the reserved module name for administrative commands.
const AdminModule = "__admin__"

// ErrBadTerm indicates a decodable term that does not match any accepted
// protocol shape.
var ErrBadTerm = errors.New("unrecognized protocol term")

// MsgKind classifies one inbound protocol term.
type MsgKind int

// Accepted inbound term variants.
const (
	KindCall  MsgKind = iota // {call, Mod, Fun, Args}, response expected
	KindCast                 // {cast, Mod, Fun, Args}, fire-and-forget
	KindInfo                 // {info, Command, Args}, metadata prefix
	KindAdmin                // {call, '__admin__', Fun, Args}
)

func (k MsgKind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindCast:
		return "cast"
	case KindInfo:
		return "info"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Message is one decoded inbound protocol term. Raw keeps the original
// encoded frame so action terms can be forwarded to workers verbatim.
type Message struct {
	Kind     MsgKind
	Module   string        // call/cast target module
	Function string        // call/cast target function, or admin command
	Command  string        // info command
	Args     []interface{} // decoded argument terms, retained as-is
	Raw      []byte
}

// DecodeMessage decodes one frame payload as an Erlang term and classifies
// it into a Message.
func DecodeMessage(frame []byte) (Message, error) {
	term, err := erlang.BinaryToTerm(frame)
	if err != nil {
		return Message{}, fmt.Errorf("decoding term: %w", err)
	}

	tuple, ok := term.(erlang.OtpErlangTuple)
	if !ok || len(tuple) == 0 {
		return Message{}, ErrBadTerm
	}

	tag, ok := atomName(tuple[0])
	if !ok {
		return Message{}, ErrBadTerm
	}

	switch tag {
	case "call", "cast":
		if len(tuple) != 4 {
			return Message{}, ErrBadTerm
		}
		mod, okMod := atomName(tuple[1])
		fun, okFun := atomName(tuple[2])
		if !okMod || !okFun {
			return Message{}, ErrBadTerm
		}

		msg := Message{
			Kind:     KindCall,
			Module:   mod,
			Function: fun,
			Args:     termArgs(tuple[3]),
			Raw:      frame,
		}
		if tag == "cast" {
			msg.Kind = KindCast
		} else if mod == AdminModule {
			msg.Kind = KindAdmin
		}

		return msg, nil
	case "info":
		if len(tuple) != 3 {
			return Message{}, ErrBadTerm
		}
		cmd, okCmd := atomName(tuple[1])
		if !okCmd {
			return Message{}, ErrBadTerm
		}

		return Message{
			Kind:    KindInfo,
			Command: cmd,
			Args:    termArgs(tuple[2]),
			Raw:     frame,
		}, nil
	default:
		return Message{}, ErrBadTerm
	}
}

// EncodeReply encodes the administrative response term {reply, <<Payload>>}.
func EncodeReply(payload string) ([]byte, error) {
	term := erlang.OtpErlangTuple{
		erlang.OtpErlangAtom("reply"),
		erlang.OtpErlangBinary{Value: []byte(payload), Bits: 8},
	}

	return erlang.TermToBinary(term, -1)
}

// EncodeNoReply encodes the cast acknowledgement term {noreply}.
func EncodeNoReply() ([]byte, error) {
	return erlang.TermToBinary(erlang.OtpErlangTuple{erlang.OtpErlangAtom("noreply")}, -1)
}

// atomName extracts the name of an atom term in either external encoding.
func atomName(v interface{}) (string, bool) {
	switch a := v.(type) {
	case erlang.OtpErlangAtom:
		return string(a), true
	case erlang.OtpErlangAtomUTF8:
		return string(a), true
	default:
		return "", false
	}
}

// termArgs normalizes the argument term into a slice. Arguments are retained
// on the message but never interpreted by the gateway.
func termArgs(v interface{}) []interface{} {
	switch args := v.(type) {
	case erlang.OtpErlangList:
		return args.Value
	case erlang.OtpErlangTuple:
		return args
	case nil:
		return nil
	default:
		return []interface{}{v}
	}
}
