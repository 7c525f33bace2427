package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/pipeline"
)

// assembleOptions holds the flags of the assemble command.
type assembleOptions struct {
	runFlags
	output   string
	noCache  bool
	chunk    int
	throttle int
	save     string
	name     string
}

// assembleCommand creates the assemble command, which replays a payload
// through a run chunk by chunk.
func (c *CLI) assembleCommand() *cobra.Command {
	var opts assembleOptions

	cmd := &cobra.Command{
		Use:   "assemble [payload.json]",
		Short: "Assemble a diagram from a streamed payload",
		Long: `Assemble a diagram from a (possibly partial) JSON payload.

The payload is read in chunks and fed to a run exactly as a streaming
producer would: every new batch of complete records is merged into the
canvas and laid out, and a final settled pass runs when the input ends.
Reads stdin when no file is given.

Modes:
  generate  namespace the new content under a fresh run token (default)
  refine    graft the content onto --anchor in the base canvas
  load      place records with their ids unchanged`,
		Example: `  diagramflow assemble payload.json -o scene.json
  diagramflow assemble payload.json --base scene.json --mode refine --anchor g1a2b3c4d5e6f-api
  producer | diagramflow assemble - --save my-flow`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAssemble(cmd.Context(), args, opts)
		},
	}

	opts.runFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output scene file (default: stdout)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().IntVar(&opts.chunk, "chunk", 0, "bytes per chunk (default from config)")
	cmd.Flags().IntVar(&opts.throttle, "throttle", 0, "new records between full layout passes (default from config)")
	cmd.Flags().StringVar(&opts.save, "save", "", "store the result as a preset with this id")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name of the saved preset")

	return cmd
}

func (c *CLI) runAssemble(ctx context.Context, args []string, opts assembleOptions) error {
	in, label, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	if opts.chunk > 0 {
		runner.Options.ChunkSize = opts.chunk
	}
	if opts.throttle > 0 {
		runner.Options.ThrottleRecords = opts.throttle
	}

	begin, err := opts.beginOptions(ctx, runner)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	c.Logger.Infof("Assembling %s", label)
	passes, hits := 0, 0
	step, err := runner.Assemble(ctx, in, begin, func(s *pipeline.Step) {
		passes++
		if s.CacheHit {
			hits++
		}
		c.Logger.Debug("batch applied",
			"records", s.Records,
			"added", len(s.Report.Added),
			"placeholders", len(s.Report.Placeholders),
			"engine", s.Report.Engine,
			"cached", s.CacheHit)
	})
	if err != nil {
		return err
	}
	logWarnings(c.Logger, step.Report.Warnings)
	prog.done(fmt.Sprintf("Assembled %d records in %d batches", step.Records, passes))

	if err := writeScene(step.Scene, opts.output); err != nil {
		return err
	}

	if opts.save != "" {
		p, err := runner.Save(ctx, step.ID, opts.save, opts.name)
		if err != nil {
			return fmt.Errorf("save preset: %w", err)
		}
		c.Logger.Info("Saved preset", "id", p.ID)
	}

	if opts.output != "" {
		printSuccess("Assembled run %s", step.ID)
		printStats(len(step.Scene.Nodes), len(step.Scene.Edges), passes > 0 && hits == passes)
		printFile(opts.output)
		if step.Token != "" {
			printNextStep("Refine a node", fmt.Sprintf("%s assemble more.json --base %s --mode refine --anchor <node>", appName, opts.output))
		}
	}
	return nil
}
