// debug_ioview.go - I/O register viewer for Machine Monitor

package main

import "fmt"

// IORegisterDesc describes a single I/O register for display.
type IORegisterDesc struct {
	Name   string
	Addr   uint32
	Width  int    // 1, 2, or 4 bytes
	Access string // "RW", "RO", "WO"
}

// IODeviceDesc describes a group of I/O registers for a device.
type IODeviceDesc struct {
	Name      string
	Registers []IORegisterDesc
}

// ioDevices describes the Z80 I/O ports a debug session can inspect: the ULA's
// border/keyboard port and the Beta128-mapped WD1793 FDC ports (spec §4.10).
var ioDevices = map[string]*IODeviceDesc{
	"ula": {
		Name: "ULA",
		Registers: []IORegisterDesc{
			{"BORDER_KEYBOARD", 0x00FE, 1, "RW"},
		},
	},
	"wd1793": {
		Name: "WD1793",
		Registers: []IORegisterDesc{
			{"COMMAND_STATUS", 0x001F, 1, "RW"},
			{"TRACK", 0x003F, 1, "RW"},
			{"SECTOR", 0x005F, 1, "RW"},
			{"DATA", 0x007F, 1, "RW"},
			{"BETA128_SYSTEM", 0x00FF, 1, "RW"},
		},
	},
}

// formatIOView renders the register view for a device.
func formatIOView(cpu DebuggableCPU, deviceName string) []string {
	dev, ok := ioDevices[deviceName]
	if !ok {
		return []string{fmt.Sprintf("Unknown device: %s", deviceName)}
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("--- %s Registers ---", dev.Name))

	for _, reg := range dev.Registers {
		data := cpu.ReadMemory(uint64(reg.Addr), reg.Width)
		if len(data) < reg.Width {
			lines = append(lines, fmt.Sprintf("  %-16s ($%04X) = ??   [%s]", reg.Name, reg.Addr, reg.Access))
			continue
		}

		var val uint32
		switch reg.Width {
		case 1:
			val = uint32(data[0])
			lines = append(lines, fmt.Sprintf("  %-16s ($%04X) = $%02X   [%d] %s", reg.Name, reg.Addr, val, val, reg.Access))
		case 2:
			val = uint32(data[0]) | uint32(data[1])<<8
			lines = append(lines, fmt.Sprintf("  %-16s ($%04X) = $%04X [%d] %s", reg.Name, reg.Addr, val, val, reg.Access))
		}
	}

	return lines
}

// listIODevices returns the names of all available IO devices.
func listIODevices() []string {
	return []string{"ula", "wd1793"}
}
