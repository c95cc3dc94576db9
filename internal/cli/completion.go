package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts. Tier arguments
// complete to the known tier names.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for realmmap.

To load completions:

Bash:
  $ source <(realmmap completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ realmmap completion bash > /etc/bash_completion.d/realmmap
  # macOS:
  $ realmmap completion bash > $(brew --prefix)/etc/bash_completion.d/realmmap

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ realmmap completion zsh > "${fpath[1]}/_realmmap"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ realmmap completion fish | source

  # To load completions for each session, execute once:
  $ realmmap completion fish > ~/.config/fish/completions/realmmap.fish

PowerShell:
  PS> realmmap completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> realmmap completion powershell > realmmap.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}
}
