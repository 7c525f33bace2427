package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestCompletionScripts(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "__start_diagramflow"},
		{"zsh", "#compdef diagramflow"},
		{"fish", "complete -c diagramflow"},
		{"powershell", "Register-ArgumentCompleter"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			if out := runRoot(t, "completion", tt.shell); !strings.Contains(out, tt.want) {
				t.Errorf("completion %s output lacks %q", tt.shell, tt.want)
			}
		})
	}
}

func TestCompletionHelpNamesApp(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	cmd, _, err := root.Find([]string{"completion"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(cmd.Long, "diagramflow completion fish > ~/.config/fish/completions/diagramflow.fish") {
		t.Errorf("Long = %q", cmd.Long)
	}
	if strings.Contains(cmd.Long, "{{app}}") {
		t.Errorf("Long has an unexpanded placeholder: %q", cmd.Long)
	}
}

func TestDirectionFlagCompletion(t *testing.T) {
	out := runRoot(t, "__complete", "layout", "--direction", "")
	for _, want := range []string{"LR", "TB"} {
		if !strings.Contains(out, want) {
			t.Errorf("completions %q lack %s", out, want)
		}
	}
}
