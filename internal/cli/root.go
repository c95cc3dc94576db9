// Package cli implements the realmmap command-line interface.
//
// The commands explore a tier in the terminal, script click sequences,
// inspect and validate tier datasets, draw the hierarchy with Graphviz, and
// serve explorer sessions over HTTP. The CLI is built using cobra and logs
// through charmbracelet/log.
//
// # Commands
//
//   - explore: interactive terminal explorer with mouse hover and click
//   - click: replay a click sequence and print every transition
//   - inspect, validate, graph, assets: look at a tier's dataset
//   - serve: run the HTTP and websocket API
//   - import: copy datasets into MongoDB
//   - cache, config, completion: housekeeping
//
// # Configuration
//
// Every command reads realmmap.toml from the working directory, or the file
// named by --config, then REALMMAP_* environment variables. Commands that
// read tiers also accept --url and --dir to point at a source directly.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/calavorn/realmmap/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Realmmap explores the political hierarchy of a world map",
		Long:         `Realmmap is a CLI and server for exploring a tiered political map: hover a region to see the realm it belongs to, click to drill from realms down to their subjects.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./realmmap.toml)")

	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.clickCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.assetsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), buildinfo.Get())
			}
			_, err := cmd.OutOrStdout().Write([]byte(buildinfo.String() + "\n"))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// configCommand prints the effective configuration.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(sourceFlags{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := io.WriteString(out, cfg.String()); err != nil {
				return err
			}
			key := cfg.ExplorerSettings().StackKey
			_, err = fmt.Fprintf(out, "\n# drill stack entries are matched by region %s (drill.stack_key = \"id\" or \"name\")\n", key)
			return err
		},
	}
}
