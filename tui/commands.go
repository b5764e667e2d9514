package tui

import "strings"

type commandKind int

const (
	cmdNone commandKind = iota
	cmdAttach
	cmdModel
	cmdModels
	cmdClear
	cmdClearForm
	cmdQuit
	cmdUnknown
)

// command is a slash command typed into the input line.
type command struct {
	kind commandKind
	name string
	arg  string
}

var commandsByName = map[string]commandKind{
	"/attach":    cmdAttach,
	"/model":     cmdModel,
	"/models":    cmdModels,
	"/clear":     cmdClear,
	"/clearform": cmdClearForm,
	"/quit":      cmdQuit,
	"/exit":      cmdQuit,
}

const helpText = "/attach <file> · /model <id> · /models · /clear · /clearform · /quit · esc cancels"

// parseCommand recognizes slash commands. Anything else is a chat message and
// yields cmdNone.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdNone}
	}

	name, arg, _ := strings.Cut(line, " ")
	kind, ok := commandsByName[name]
	if !ok {
		kind = cmdUnknown
	}
	return command{kind: kind, name: name, arg: strings.TrimSpace(arg)}
}
