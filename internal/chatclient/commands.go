package chatclient

import (
	"strconv"
	"strings"
)

const helpText = `Commands:
  /help                   Show this message
  /exit                   Quit
  /personality <id>       Switch personality
  /personalities          List personalities
  /mood <0-100>           Set the mood level
  /session [id]           Show or switch the session (no id starts a new one)
  /clear                  Clear the current session's history
  /history                Show the current session's history`

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdExit
	cmdHelp
	cmdPersonality
	cmdPersonalities
	cmdMood
	cmdSession
	cmdClear
	cmdHistory
)

type command struct {
	kind commandKind
	arg  string
	mood int
	err  string
}

func parseCommand(input string) command {
	parts := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	if len(parts) == 0 {
		return command{kind: cmdUnknown, arg: input}
	}
	arg := strings.Join(parts[1:], " ")

	switch parts[0] {
	case "exit", "quit":
		return command{kind: cmdExit}
	case "help":
		return command{kind: cmdHelp}
	case "personality", "p":
		if arg == "" {
			return command{kind: cmdPersonality, err: "usage: /personality <id>"}
		}
		return command{kind: cmdPersonality, arg: arg}
	case "personalities":
		return command{kind: cmdPersonalities}
	case "mood":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 || n > 100 {
			return command{kind: cmdMood, err: "usage: /mood <0-100>"}
		}
		return command{kind: cmdMood, mood: n}
	case "session":
		return command{kind: cmdSession, arg: arg}
	case "clear":
		return command{kind: cmdClear}
	case "history":
		return command{kind: cmdHistory}
	default:
		return command{kind: cmdUnknown, arg: input}
	}
}
