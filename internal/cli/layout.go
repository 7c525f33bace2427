package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/scene"
)

// layoutCommand creates the layout command, which lays out a finished
// scene from scratch.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		prefs  prefsFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [scene.json]",
		Short: "Lay out a complete scene from scratch",
		Long: `Lay out a complete scene from scratch.

Every node is placed again as if the scene had arrived in a single
settled batch. Pinned nodes keep their positions, container membership
is preserved and edge ports and routes are recomputed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], prefs, output)
		},
	}

	prefs.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")

	return cmd
}

// runLayout loads the scene, lays it out and writes the result.
func (c *CLI) runLayout(ctx context.Context, input string, pf prefsFlags, output string) error {
	s, err := scene.ReadSceneFile(input)
	if err != nil {
		return fmt.Errorf("load scene %s: %w", input, err)
	}
	prefs, err := pf.prefs()
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newPassSpinner(ctx, len(s.Nodes), len(s.Edges))
	spinner.Start()
	out, rep, err := runner.Relayout(s, prefs)
	if err != nil {
		spinner.Fail("Layout failed")
		return err
	}
	elapsed := spinner.Stop()
	logWarnings(c.Logger, rep.Warnings)

	if output == "" {
		output = deriveOutputPath(input, ".layout.json")
	}
	if err := scene.WriteSceneFile(out, output); err != nil {
		return err
	}

	printSuccess("Laid out with %s in %s", rep.Engine, elapsed.Round(time.Millisecond))
	printStats(rep.Nodes, rep.Edges, false)
	if !rep.Converged {
		printWarning("Overlap resolution stopped after %d iterations", rep.Iterations)
	}
	printFile(output)
	return nil
}

// deriveOutputPath replaces the input's extension with suffix.
func deriveOutputPath(input, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+suffix)
}
