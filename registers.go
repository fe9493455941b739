// registers.go - Terminal MMIO register address map.
//
// Trimmed down from the teacher's master I/O register map, which enumerated
// every chip's address window across several CPU families' address spaces.
// This domain exposes one MMIO device (TerminalMMIO, terminal_io.go) plus the
// WD1793/Beta128 and ULA ports (wd1793_ports.go, debug_ioview.go); it carries
// no 32-bit address space, so those windows have no meaning here.

package main

const (
	TERM_OUT            = 0xF0700    // 32-bit address
	TERM_OUT_16BIT      = 0xF700     // 16-bit form for Z80/6502 access
	TERM_OUT_SIGNEXT    = 0xFFFFF700 // Sign-extended form (M68K .W addressing)
	TERM_STATUS         = 0xF0704    // Bit 0: input available, Bit 1: output ready
	TERM_IN             = 0xF0708    // Read next input character (dequeues)
	TERM_LINE_STATUS    = 0xF070C    // Bit 0: complete line available
	TERM_ECHO           = 0xF0710    // Bit 0: local echo enable (default 1)
	TERM_CTRL           = 0xF0714    // Bit 0: line-input mode enable (default 1)
	TERM_KEY_STATUS     = 0xF072C    // Bit 0: raw keystroke available
	TERM_KEY_IN         = 0xF0728    // Read next raw keystroke (dequeues)
	TERM_SENTINEL       = 0xF07F0    // Write 0xDEAD to stop CPU (via OnSentinel callback)
	TERMINAL_REGION_END = 0xF07FF    // Reserve 256 bytes for future expansion
)
