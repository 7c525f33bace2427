package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// completionShells maps each supported shell to its generator and the
// line that installs the script permanently.
var completionShells = map[string]struct {
	install string
	gen     func(root *cobra.Command, w io.Writer) error
}{
	"bash": {
		install: "{{app}} completion bash > /etc/bash_completion.d/{{app}}",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	},
	"zsh": {
		install: `{{app}} completion zsh > "${fpath[1]}/_{{app}}"`,
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	},
	"fish": {
		install: "{{app}} completion fish > ~/.config/fish/completions/{{app}}.fish",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	},
	"powershell": {
		install: "{{app}} completion powershell >> $PROFILE",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
	},
}

// completionCommand creates the completion command. Scripts complete
// subcommands and flags, including the --direction and --algorithm values.
func (c *CLI) completionCommand() *cobra.Command {
	shells := []string{"bash", "zsh", "fish", "powershell"}
	long := "Generate a shell completion script for " + appName + ".\n\nInstall permanently:\n"
	for _, sh := range shells {
		long += fmt.Sprintf("\n  %-11s %s", sh, expandApp(completionShells[sh].install))
	}

	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate shell completion scripts",
		Long:                  long + "\n",
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionShells[args[0]].gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}

func expandApp(s string) string {
	return strings.ReplaceAll(s, "{{app}}", appName)
}
