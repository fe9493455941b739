// shell_commands.go - "feature" and "profiler opcode" verb handlers (spec §4.13).

package main

import "fmt"

// cmdFeature implements: feature <id|alias> [on|off|mode <name>].
func (sh *Shell) cmdFeature(cmd MonitorCommand) {
	if len(cmd.Args) == 0 {
		sh.printFeatureTable()
		return
	}
	id := cmd.Args[0]
	if len(cmd.Args) == 1 {
		fmt.Fprintf(sh.out, "%s: enabled=%v mode=%s\n", id, sh.features.IsEnabled(id), sh.features.GetMode(id))
		return
	}
	switch cmd.Args[1] {
	case "on":
		if !sh.features.Set(id, true) {
			fmt.Fprintf(sh.out, "feature: unknown id or alias %q\n", id)
		}
	case "off":
		if !sh.features.Set(id, false) {
			fmt.Fprintf(sh.out, "feature: unknown id or alias %q\n", id)
		}
	case "mode":
		if len(cmd.Args) < 3 {
			fmt.Fprintln(sh.out, "usage: feature <id> mode <name>")
			return
		}
		if !sh.features.SetMode(id, cmd.Args[2]) {
			fmt.Fprintf(sh.out, "feature: cannot set mode %q on %q\n", cmd.Args[2], id)
		}
	default:
		fmt.Fprintf(sh.out, "feature: unknown sub-command %q\n", cmd.Args[1])
	}
}

func (sh *Shell) printFeatureTable() {
	fmt.Fprintf(sh.out, "%-16s %-8s %-8s %s\n", "ID", "ENABLED", "MODE", "DESCRIPTION")
	for _, f := range sh.features.List() {
		fmt.Fprintf(sh.out, "%-16s %-8v %-8s %s\n", f.ID, f.Enabled, f.Mode, f.Description)
	}
}

// cmdProfiler implements:
// profiler opcode <start|pause|resume|stop|clear|status|counters [N]|trace [N]|save <path>>.
func (sh *Shell) cmdProfiler(cmd MonitorCommand) {
	if len(cmd.Args) < 2 || cmd.Args[0] != "opcode" {
		fmt.Fprintln(sh.out, "usage: profiler opcode <start|pause|resume|stop|clear|status|counters [N]|trace [N]|save <path>>")
		return
	}
	verb := cmd.Args[1]
	rest := cmd.Args[2:]

	if verb == "start" && !sh.features.IsEnabled(FeatureOpcodeProfiler) {
		fmt.Fprintln(sh.out, "profiler opcode start: refused, the opcodeprofiler feature is off (enable with: feature opcodeprofiler on)")
		return
	}

	switch verb {
	case "start":
		sh.profiler.Start()
		fmt.Fprintln(sh.out, "profiler: capturing")
	case "pause":
		sh.profiler.Pause()
		fmt.Fprintln(sh.out, "profiler: paused")
	case "resume":
		sh.profiler.Resume()
		fmt.Fprintln(sh.out, "profiler: resumed")
	case "stop":
		sh.profiler.Stop()
		fmt.Fprintln(sh.out, "profiler: stopped")
	case "clear":
		sh.profiler.Clear()
		fmt.Fprintln(sh.out, "profiler: cleared")
	case "status":
		sh.printProfilerStatus()
	case "counters":
		sh.printProfilerCounters(rest)
	case "trace":
		sh.printProfilerTrace(rest)
	case "save":
		sh.saveProfilerSnapshot(rest)
	default:
		fmt.Fprintf(sh.out, "profiler opcode: unknown sub-command %q\n", verb)
	}
}

func (sh *Shell) printProfilerStatus() {
	s := sh.profiler.Status()
	fmt.Fprintf(sh.out, "capturing=%v total=%d trace_size=%d trace_capacity=%d\n",
		s.Capturing, s.Total, s.TraceSize, s.TraceCapacity)
}

func (sh *Shell) printProfilerCounters(args []string) {
	n := 20
	if len(args) > 0 {
		if v, ok := ParseAddress(args[0]); ok {
			n = int(v)
		}
	}
	fmt.Fprintf(sh.out, "%-8s %-8s %-10s %s\n", "PREFIX", "OPCODE", "COUNT", "MNEMONIC")
	for _, c := range sh.profiler.GetTopOpcodes(n) {
		fmt.Fprintf(sh.out, "%#06x   %#04x     %-10d %s\n", c.Prefix, c.Opcode, c.Count, c.Mnemonic)
	}
}

func (sh *Shell) printProfilerTrace(args []string) {
	n := 20
	if len(args) > 0 {
		if v, ok := ParseAddress(args[0]); ok {
			n = int(v)
		}
	}
	fmt.Fprintf(sh.out, "%-6s %-8s %-8s %-8s %-6s %-6s %-8s %s\n",
		"IDX", "PC", "PREFIX", "OPCODE", "FLAGS", "A", "FRAME", "T-STATE")
	for i, t := range sh.profiler.GetRecent(n) {
		fmt.Fprintf(sh.out, "%-6d %#06x   %#06x   %#04x     %#04x   %#04x   %-8d %d\n",
			i, t.PC, t.Prefix, t.Opcode, t.Flags, t.A, t.Frame, t.TState)
	}
}

func (sh *Shell) saveProfilerSnapshot(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(sh.out, "usage: profiler opcode save <path>")
		return
	}
	if !sh.profiler.SaveTo(args[0]) {
		fmt.Fprintf(sh.out, "profiler opcode save: failed to write %s\n", args[0])
		return
	}
	fmt.Fprintf(sh.out, "profiler opcode save: wrote %s\n", args[0])
}
