package handlers

import "fmt"

// CommandKind is the closed set of inbound commands.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdPlayerJoin
	CmdSendPlayerList
	CmdLobbyReady
	CmdGameStarted
	CmdSetMaxHealth
	CmdDrawCard
	CmdNextTurn
)

var commandNames = map[string]CommandKind{
	"PlayerJoin":     CmdPlayerJoin,
	"SendPlayerList": CmdSendPlayerList,
	"LobbyReady":     CmdLobbyReady,
	"GameStarted":    CmdGameStarted,
	"SetMaxHealth":   CmdSetMaxHealth,
	"DrawCard":       CmdDrawCard,
	"NextTurn":       CmdNextTurn,
}

func (k CommandKind) String() string {
	for name, kind := range commandNames {
		if kind == k {
			return name
		}
	}
	if k == CmdUnknown {
		return "Unknown"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is an inbound frame decoded once at the transport boundary.
type Command struct {
	Kind CommandKind
	// Name is the tag as received, kept for logging unknown commands.
	Name string
	Args []string
}

// DecodeCommand turns a frame ["<tag>", args...] into a Command. An empty
// frame or unrecognized tag yields CmdUnknown.
func DecodeCommand(frame []string) Command {
	if len(frame) == 0 {
		return Command{Kind: CmdUnknown}
	}
	return Command{
		Kind: commandNames[frame[0]],
		Name: frame[0],
		Args: frame[1:],
	}
}

// Arg returns the i-th argument, or "" if absent.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Ready-check arguments to LobbyReady.
const (
	ArgReady   = "Ready"
	ArgUnready = "Unready"
)
