package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scrawl-dev/scrawl/internal/printer"
	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

var initCmd = &cobra.Command{
	Use:   "init <dir> <width> <height>",
	Short: "Create a new canvas storage directory",
	Long: `Create the permanent storage directory for a canvas and the zero-filled
grid file inside it.

The directory must not exist yet. Grid dimensions are fixed at creation
time and cannot be changed later.

Example:
  scrawl init ./data 256 256`,
	Args: cobra.ExactArgs(3),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := args[0]

	width, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid width %q: %w", args[1], err)
	}
	height, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[2], err)
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return printer.Error(
				"Storage directory already exists",
				fmt.Sprintf("Refusing to initialize over %s: a canvas there would be destroyed.", dir),
				[]string{
					"Pick a different directory",
					"Remove the existing directory first if it really is disposable",
				})
		}
		return fmt.Errorf("failed to create the storage directory: %w", err)
	}

	if err := canvas.Create(filepath.Join(dir, "grid"), uint32(width), uint32(height)); err != nil {
		return fmt.Errorf("failed to create grid data file: %w", err)
	}

	printer.Success("Created a %dx%d canvas at %s\n", width, height, dir)
	return nil
}
