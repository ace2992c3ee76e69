package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	dse "github.com/spinnakermanchester/dataspec/vm"
)

// defaultRegionLimit bounds a single RESERVE when the operator doesn't
// override it with --region-limit. 128 MiB comfortably exceeds any single
// SpiNNaker core's SDRAM share.
const defaultRegionLimit = 128 << 20

func main() {
	rootCmd := &cobra.Command{
		Use:   "dserun",
		Short: "Executes a data specification and assembles its memory image",
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var inputPath, outputPath, baseStr, regionLimitStr string
	var trace bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a spec file and write the assembled memory image to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := parseHexOrDecimal(baseStr)
			if err != nil {
				return fmt.Errorf("invalid --base: %w", err)
			}
			limit, err := parseRegionLimit(regionLimitStr)
			if err != nil {
				return err
			}

			input, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading spec file: %w", err)
			}

			vm := dse.NewVM(input, limit)
			if trace {
				vm.SetTrace(os.Stderr)
			}

			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			spin.Prefix = fmt.Sprintf("executing %s... ", inputPath)
			spin.Start()
			err = vm.Execute()
			spin.Stop()

			if err != nil {
				return fmt.Errorf("executing spec: %w", err)
			}

			vm.SetBaseAddress(base)
			image := vm.Assemble()

			if err := os.WriteFile(outputPath, image, 0o644); err != nil {
				return fmt.Errorf("writing image file: %w", err)
			}

			fmt.Printf("wrote %s: %d bytes, base 0x%X, %d bytes allocated\n",
				outputPath, len(image), base, vm.TotalSpaceAllocated())
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the spec file (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to write the assembled image (required)")
	cmd.Flags().StringVar(&baseStr, "base", "0x0", "target base address (hex or decimal)")
	cmd.Flags().StringVar(&regionLimitStr, "region-limit", "", "maximum bytes a single RESERVE may request")
	cmd.Flags().BoolVar(&trace, "trace", false, "print one line per decoded command to stderr")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

func newInspectCmd() *cobra.Command {
	var inputPath, regionLimitStr string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run a spec file and print its region/pointer-table summary without writing an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := parseRegionLimit(regionLimitStr)
			if err != nil {
				return err
			}

			input, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading spec file: %w", err)
			}

			vm := dse.NewVM(input, limit)
			if err := vm.Execute(); err != nil {
				return fmt.Errorf("executing spec: %w", err)
			}

			vm.SetBaseAddress(0)
			fmt.Printf("slot  kind       capacity  high-water  referenceable\n")
			for slot, r := range vm.Regions() {
				fmt.Printf("%4d  %-9s  %8d  %10d  %v\n",
					slot, r.Kind(), r.Capacity(), r.MaxWritePointer(), r.Referenceable())
			}
			fmt.Printf("\ntotal allocated: %d bytes\nconstructed size: %d bytes\n",
				vm.TotalSpaceAllocated(), vm.ConstructedDataSize())
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the spec file (required)")
	cmd.Flags().StringVar(&regionLimitStr, "region-limit", "", "maximum bytes a single RESERVE may request")
	cmd.MarkFlagRequired("input")

	return cmd
}

func parseHexOrDecimal(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func parseRegionLimit(s string) (uint32, error) {
	if s == "" {
		return defaultRegionLimit, nil
	}
	v, err := parseHexOrDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --region-limit: %w", err)
	}
	return v, nil
}
