package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/pipeline"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

var algorithms = []string{
	string(layout.AlgorithmLayered),
	string(layout.AlgorithmTree),
	string(layout.AlgorithmGrid),
	string(layout.AlgorithmGraphviz),
}

// prefsFlags are the layout hints shared by every command that lays out.
type prefsFlags struct {
	direction   string
	tree        bool
	algorithm   string
	diagramType string
}

func (f *prefsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.direction, "direction", "d", "", "main axis: LR or TB (default: chosen per batch)")
	cmd.Flags().BoolVar(&f.tree, "tree", false, "lay out as a mind map")
	cmd.Flags().StringVarP(&f.algorithm, "algorithm", "a", "", "force an engine: layered, tree, grid, graphviz")
	cmd.Flags().StringVar(&f.diagramType, "type", "", "diagram type hint, e.g. flowchart")
	_ = cmd.RegisterFlagCompletionFunc("direction", cobra.FixedCompletions([]string{"LR", "TB"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("algorithm", cobra.FixedCompletions(algorithms, cobra.ShellCompDirectiveNoFileComp))
}

func (f prefsFlags) prefs() (layout.Preferences, error) {
	p := layout.Preferences{Tree: f.tree, DiagramType: f.diagramType}
	if f.direction != "" {
		p.Direction = layout.ParseDirection(f.direction)
		if p.Direction == "" {
			return p, fmt.Errorf("invalid direction %q (must be LR or TB)", f.direction)
		}
	}
	if f.algorithm != "" {
		if !slices.Contains(algorithms, f.algorithm) {
			return p, fmt.Errorf("invalid algorithm %q (must be one of: layered, tree, grid, graphviz)", f.algorithm)
		}
		p.Algorithm = layout.Algorithm(f.algorithm)
	}
	return p, nil
}

// runFlags select the run mode and the canvas a run starts from.
type runFlags struct {
	prefsFlags
	mode     string
	anchor   string
	replaces string
	base     string
	preset   string
}

func (f *runFlags) register(cmd *cobra.Command) {
	f.prefsFlags.register(cmd)
	cmd.Flags().StringVarP(&f.mode, "mode", "m", string(pipeline.ModeGenerate), "run mode: generate, refine, load")
	cmd.Flags().StringVar(&f.anchor, "anchor", "", "existing node a refine grafts onto")
	cmd.Flags().StringVar(&f.replaces, "replaces", "", "token of an earlier run this one supersedes")
	cmd.Flags().StringVarP(&f.base, "base", "b", "", "scene file to start from")
	cmd.Flags().StringVarP(&f.preset, "preset", "p", "", "stored preset to start from")
	cmd.MarkFlagsMutuallyExclusive("base", "preset")
}

// beginOptions resolves the flags into runner options, reading the base
// canvas from a file or the preset store.
func (f runFlags) beginOptions(ctx context.Context, r *pipeline.Runner) (pipeline.BeginOptions, error) {
	prefs, err := f.prefs()
	if err != nil {
		return pipeline.BeginOptions{}, err
	}
	opts := pipeline.BeginOptions{
		Mode:     pipeline.Mode(f.mode),
		Anchor:   f.anchor,
		Replaces: f.replaces,
		Prefs:    prefs,
	}
	switch {
	case f.base != "":
		s, err := scene.ReadSceneFile(f.base)
		if err != nil {
			return opts, fmt.Errorf("read base scene: %w", err)
		}
		opts.Base = s
	case f.preset != "":
		s, err := r.Preset(ctx, f.preset)
		if err != nil {
			return opts, err
		}
		opts.Base = s
	}
	return opts, nil
}

// openInput returns the file named by args, or stdin when there is none
// or it is "-".
func openInput(args []string) (*os.File, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, "stdin", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", err
	}
	return f, args[0], nil
}

// writeScene writes s to path, or to stdout when path is empty.
func writeScene(s scene.Scene, path string) error {
	if path == "" {
		return scene.WriteScene(s, os.Stdout)
	}
	return scene.WriteSceneFile(s, path)
}
