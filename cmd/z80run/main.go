package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zotley/z80core/cpm"
	"github.com/zotley/z80core/disasm"
	"github.com/zotley/z80core/monitor"
	"github.com/zotley/z80core/z80"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "z80run",
		Short: "Run CP/M-style .COM images against the z80core Z80 emulator",
	}
	root.AddCommand(runCmd(), batchCmd(), disasmCmd(), monitorCmd())
	return root
}

func runCmd() *cobra.Command {
	var budget int
	var trace bool
	cmd := &cobra.Command{
		Use:   "run <image.com>",
		Short: "Load a .COM image, run it to completion, print captured BDOS output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneTraced(args[0], budget, trace, os.Stdout)
		},
	}
	cmd.Flags().IntVar(&budget, "budget", 200_000_000, "maximum instructions to execute before giving up")
	cmd.Flags().BoolVar(&trace, "trace", false, "print PC and register state before every instruction")
	return cmd
}

// runOne loads and runs a single image, writing its captured console output
// to out. It returns an error (causing a nonzero exit) when the image cannot
// be loaded, or when the step budget is exhausted before the image reaches
// warm boot or HALT.
func runOne(path string, budget int, out *os.File) error {
	return runOneTraced(path, budget, false, out)
}

func runOneTraced(path string, budget int, trace bool, out *os.File) error {
	m := cpm.NewMachine()
	if err := m.LoadFile(path); err != nil {
		return err
	}

	var reason z80.StopReason
	if trace {
		reason = m.CPU.RunUntil(func(pc uint16, halted bool) bool {
			fmt.Fprintf(out, "%s\n", m.CPU.String())
			return pc == cpm.WarmBoot || halted
		}, budget)
	} else {
		reason = m.Run(budget)
	}
	fmt.Fprint(out, m.Output.String())

	if reason == z80.StopBudget {
		return fmt.Errorf("%s: step budget of %d exhausted", path, budget)
	}
	return nil
}

func batchCmd() *cobra.Command {
	var budget int
	cmd := &cobra.Command{
		Use:   "batch <image.com>...",
		Short: "Run several .COM images concurrently and report pass/fail for each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, budget)
		},
	}
	cmd.Flags().IntVar(&budget, "budget", 200_000_000, "maximum instructions to execute per image")
	return cmd
}

type batchResult struct {
	path   string
	output string
	budget bool
}

func runBatch(paths []string, budget int) error {
	results := make([]batchResult, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			m := cpm.NewMachine()
			if err := m.LoadFile(path); err != nil {
				return err
			}
			reason := m.Run(budget)
			results[i] = batchResult{
				path:   path,
				output: m.Output.String(),
				budget: reason == z80.StopBudget,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		status := "OK"
		if r.budget {
			status = "BUDGET EXHAUSTED"
			failed++
		}
		fmt.Printf("=== %s [%s] ===\n%s\n", r.path, status, r.output)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images exhausted their step budget", failed, len(results))
	}
	return nil
}

func disasmCmd() *cobra.Command {
	var addr uint16
	var count int
	cmd := &cobra.Command{
		Use:   "disasm <image.com>",
		Short: "Disassemble a raw image starting at a given address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			read := func(a uint16) byte {
				off := int(a) - int(addr)
				if off < 0 || off >= len(data) {
					return 0
				}
				return data[off]
			}
			for _, line := range disasm.Disassemble(read, addr, count) {
				fmt.Printf("%04X  %-12s %s\n", line.Address, line.HexBytes, line.Mnemonic)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&addr, "addr", 0x0100, "load address of the image")
	cmd.Flags().IntVar(&count, "count", 32, "number of instructions to disassemble")
	return cmd
}

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor <image.com>",
		Short: "Load a .COM image and drop into an interactive register/memory monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := cpm.NewMachine()
			if err := m.LoadFile(args[0]); err != nil {
				return err
			}
			debug := monitor.NewDebugZ80(m.CPU)
			loop := monitor.NewLoop(debug, os.Stdin, os.Stdout)
			return loop.Run(int(os.Stdin.Fd()))
		},
	}
}
