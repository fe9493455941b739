// profiler_snapshot.go - Human-readable profiler export (spec §4.4 save_to, §6.4).

package main

import (
	"bufio"
	"fmt"
	"os"
)

// SaveTo writes a plain-text snapshot: status, top 100 opcodes, last 100 trace entries.
// Returns false (and logs) if the path cannot be opened for writing; the file exists iff
// SaveTo returned true (spec §4.4 postcondition).
func (p *Profiler) SaveTo(path string) bool {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profiler: cannot write %s: %v\n", path, err)
		return false
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	status := p.Status()
	fmt.Fprintf(w, "status:\n")
	fmt.Fprintf(w, "  capturing: %v\n", status.Capturing)
	fmt.Fprintf(w, "  total: %d\n", status.Total)
	fmt.Fprintf(w, "  trace_size: %d\n", status.TraceSize)
	fmt.Fprintf(w, "  trace_capacity: %d\n", status.TraceCapacity)

	fmt.Fprintf(w, "top_opcodes:\n")
	for _, c := range p.GetTopOpcodes(100) {
		mnemonic := c.Mnemonic
		if mnemonic == "" {
			mnemonic = "?"
		}
		fmt.Fprintf(w, "  - prefix: %#04x opcode: %#02x mnemonic: %s count: %d\n",
			c.Prefix, c.Opcode, mnemonic, c.Count)
	}

	fmt.Fprintf(w, "recent_trace:\n")
	for i, t := range p.GetRecent(100) {
		fmt.Fprintf(w, "  - idx: %d pc: %#04x prefix: %#04x opcode: %#02x flags: %#02x a: %#02x frame: %d t_state: %d\n",
			i, t.PC, t.Prefix, t.Opcode, t.Flags, t.A, t.Frame, t.TState)
	}

	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "profiler: error writing %s: %v\n", path, err)
		os.Remove(path)
		return false
	}
	return true
}
