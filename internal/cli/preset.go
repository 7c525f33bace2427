package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/scene"
)

// presetCommand creates the preset management command.
func (c *CLI) presetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage stored diagrams",
		Long: `Manage presets: finished diagrams stored so later runs can start from
them (assemble --preset). Presets live in the preset store named by
the config file.`,
	}

	cmd.AddCommand(c.presetListCommand())
	cmd.AddCommand(c.presetShowCommand())
	cmd.AddCommand(c.presetImportCommand())
	cmd.AddCommand(c.presetDeleteCommand())

	return cmd
}

func (c *CLI) presetListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer runner.Close()

			infos, err := runner.Presets.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("No presets stored")
				return nil
			}
			for _, info := range infos {
				name := info.Name
				if name == "" {
					name = "—"
				}
				printKeyValue(info.ID, name+StyleDim.Render("  "+strconv.Itoa(info.Nodes)+" nodes  "+info.UpdatedAt.Format("Jan 2 15:04")))
			}
			return nil
		},
	}
}

func (c *CLI) presetShowCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Write a preset's scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer runner.Close()

			s, err := runner.Preset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := writeScene(s, output); err != nil {
				return err
			}
			if output != "" {
				printSuccess("Wrote preset %s", args[0])
				printFile(output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (c *CLI) presetImportCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <id> <scene.json>",
		Short: "Store a scene file as a preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scene.ReadSceneFile(args[1])
			if err != nil {
				return fmt.Errorf("load scene %s: %w", args[1], err)
			}
			runner, err := c.newRunner(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer runner.Close()

			if _, err := runner.PutPreset(cmd.Context(), args[0], name, s); err != nil {
				return err
			}
			printSuccess("Stored preset %s", args[0])
			printStats(len(s.Nodes), len(s.Edges), false)
			printNextStep("Start a run from it", fmt.Sprintf("%s assemble payload.json --preset %s", appName, args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func (c *CLI) presetDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer runner.Close()

			if err := runner.DeletePreset(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted preset %s", args[0])
			return nil
		},
	}
}
