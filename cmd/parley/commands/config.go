package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"parley/internal/app"
)

// config: print the configuration after defaults, file and flags.
func configCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if write {
				if err := app.SaveConfig(configPath, cfg); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "* wrote", configPath)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "save the effective configuration to --config")
	return cmd
}
