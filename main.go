// main.go - Entry point: a cobra command surface over the emulator wiring (emulator.go).
//
// Grounded on oisee-z80-optimizer/cmd/z80opt's cobra root/run-subcommand layout (this
// retrieval pack's other Z80 tooling); the teacher itself has no CLI framework, so the
// domain-specific command surface is adopted rather than dropped per SPEC_FULL.md.

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagFeatures string
	flagDisk     string
	flagModel    string
	flagROM      string
)

func main() {
	root := &cobra.Command{
		Use:   "zxcore",
		Short: "ZX Spectrum core: Z80 CPU + WD1793 floppy disk controller emulator",
	}
	root.PersistentFlags().StringVar(&flagFeatures, "features", "features.ini", "feature registry persistence file")
	root.PersistentFlags().StringVar(&flagModel, "model", "128", "machine model: pentagon|48|128 (informational; all models share this core)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the emulator and drop into the command shell",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&flagDisk, "disk", "", "TR-DOS .trd disk image to load into drive 0")
	runCmd.Flags().StringVar(&flagROM, "rom", "", "raw Z80 binary to load directly into memory (bypasses TR-DOS)")

	diskCmd := &cobra.Command{
		Use:   "disk",
		Short: "Disk image inspection subcommands",
	}
	diskCmd.AddCommand(&cobra.Command{
		Use:   "info <path>",
		Short: "Print track/sector summary for a TR-DOS disk image",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiskInfo,
	})

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the emulator and drop into the low-level machine monitor (breakpoints, disassembly, memory)",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().StringVar(&flagDisk, "disk", "", "TR-DOS .trd disk image to load into drive 0")
	monitorCmd.Flags().StringVar(&flagROM, "rom", "", "raw Z80 binary to load directly into memory")

	root.AddCommand(runCmd, diskCmd, monitorCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	emu := NewEmulator("zxcore", flagFeatures)

	if flagDisk != "" {
		if err := emu.LoadDisk(flagDisk, InterleaveTRDOS504T); err != nil {
			return err
		}
		emu.FDDs[0].SetMotor(true)
	}
	if flagROM != "" {
		if err := emu.LoadProgram(flagROM); err != nil {
			return err
		}
	}

	if err := emu.Start(); err != nil {
		return err
	}
	defer emu.Stop()

	fmt.Fprintln(os.Stdout, "zxcore: running. Type 'feature', 'profiler opcode', 'select', 'list', or 'exit'.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !emu.Shell.Dispatch(scanner.Text()) {
			break
		}
	}
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	emu := NewEmulator("zxcore", flagFeatures)
	emu.Features.Set(FeatureDebugMode, true)

	if flagDisk != "" {
		if err := emu.LoadDisk(flagDisk, InterleaveTRDOS504T); err != nil {
			return err
		}
		emu.FDDs[0].SetMotor(true)
	}
	if flagROM != "" {
		if err := emu.LoadProgram(flagROM); err != nil {
			return err
		}
	}
	defer emu.Stop()

	emu.Monitor.Activate()
	for _, line := range emu.Monitor.DrainOutput() {
		fmt.Println(line)
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if emu.Monitor.ExecuteCommand(scanner.Text()) {
			break
		}
		for _, line := range emu.Monitor.DrainOutput() {
			fmt.Println(line)
		}
	}
	return nil
}

func runDiskInfo(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	img, err := LoadTRDImage(data, InterleaveTRDOS504T)
	if err != nil {
		return err
	}
	fmt.Printf("cylinders=%d sides=%d tracks=%d\n", img.Cylinders, img.Sides, img.TrackCount())
	for i := 0; i < img.TrackCount(); i++ {
		trk := img.GetTrack(i)
		fmt.Println(trk.String())
	}
	return nil
}
