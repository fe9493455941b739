// shell.go - Line-oriented command dispatcher for feature/profiler/disk-drive verbs (C13).
//
// Grounded on debug_commands.go's ParseCommand/MonitorCommand tokenizer and
// MachineMonitor.ExecuteCommand dispatch loop, and terminal_host.go's raw-mode read loop;
// reuses ParseCommand/ParseAddress directly rather than re-implementing a second tokenizer.

package main

import (
	"fmt"
	"io"
)

// Shell dispatches command lines against the emulator's feature registry, profiler, and
// disk drives (spec §4.13).
type Shell struct {
	out io.Writer

	features *FeatureRegistry
	profiler *Profiler
	fdds     [4]*FDD
	selected int
}

// NewShell wires a shell to its collaborators.
func NewShell(out io.Writer, features *FeatureRegistry, profiler *Profiler, fdds [4]*FDD) *Shell {
	return &Shell{out: out, features: features, profiler: profiler, fdds: fdds, selected: 0}
}

// Dispatch parses and executes one command line, returning false only for an "exit"
// or "quit" command (mirroring MachineMonitor.ExecuteCommand's loop-continuation contract).
func (sh *Shell) Dispatch(line string) bool {
	cmd := ParseCommand(line)
	if cmd.Name == "" {
		return true
	}
	switch cmd.Name {
	case "feature":
		sh.cmdFeature(cmd)
	case "profiler":
		sh.cmdProfiler(cmd)
	case "select":
		sh.cmdSelect(cmd)
	case "list":
		sh.cmdList(cmd)
	case "exit", "quit":
		return false
	default:
		fmt.Fprintf(sh.out, "unknown command: %s\n", cmd.Name)
	}
	return true
}

func (sh *Shell) cmdSelect(cmd MonitorCommand) {
	if len(cmd.Args) < 1 {
		fmt.Fprintln(sh.out, "usage: select <index>")
		return
	}
	idx, ok := ParseAddress(cmd.Args[0])
	if !ok || idx >= uint64(len(sh.fdds)) {
		fmt.Fprintf(sh.out, "select: invalid drive index %q\n", cmd.Args[0])
		return
	}
	sh.selected = int(idx)
	fmt.Fprintf(sh.out, "drive %d selected\n", sh.selected)
}

func (sh *Shell) cmdList(_ MonitorCommand) {
	for i, f := range sh.fdds {
		if f == nil {
			continue
		}
		marker := " "
		if i == sh.selected {
			marker = "*"
		}
		fmt.Fprintf(sh.out, "%s drive %d: motor=%v inserted=%v track=%d\n",
			marker, i, f.IsMotorOn(), f.IsDiskInserted(), f.GetTrack())
	}
}
