package engine

import (
	"errors"
	"fmt"
)

// CommandArgs carries the parameters of an externally triggered action.
// Not every command uses every field.
type CommandArgs struct {
	FloorID string
	Name    string
	HasDock bool
}

type CommandFunc func(args CommandArgs) (any, error)

var ErrUnknownCommand = errors.New("unknown command")

// Dispatch runs one named command. Every action a UI or automation
// layer can trigger goes through this table, so there is exactly one
// entry point per operation.
func (e *Engine) Dispatch(command string, args CommandArgs) (any, error) {
	fn, ok := e.commands[command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	return fn(args)
}

// Commands lists the registered command names.
func (e *Engine) Commands() []string {
	names := make([]string, 0, len(e.commands))
	for name := range e.commands {
		names = append(names, name)
	}
	return names
}

func (e *Engine) registerCommands() {
	m := e.manager
	e.commands = map[string]CommandFunc{
		"floor.switch": func(a CommandArgs) (any, error) {
			return nil, m.SwitchFloor(a.FloorID)
		},
		"floor.save": func(a CommandArgs) (any, error) {
			return m.RegisterAndBackup(a.Name, a.HasDock)
		},
		"floor.map_new": func(a CommandArgs) (any, error) {
			return m.StartNewFloorMapping(a.Name, a.HasDock)
		},
		"floor.rename": func(a CommandArgs) (any, error) {
			return nil, m.Registry().Rename(a.FloorID, a.Name)
		},
		"floor.set_dock": func(a CommandArgs) (any, error) {
			return nil, m.Registry().SetDock(a.FloorID, a.HasDock)
		},
		"floor.delete": func(a CommandArgs) (any, error) {
			return nil, m.DeleteFloor(a.FloorID)
		},
		"floor.list": func(CommandArgs) (any, error) {
			return m.Registry().List()
		},
		"floor.active": func(CommandArgs) (any, error) {
			return m.Registry().Active()
		},
		"robot.status": func(CommandArgs) (any, error) {
			return e.source.CurrentStatus()
		},
	}
}
