package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles [name]",
	Short: "List the size profiles",
	Long: `Print the record counts of every size profile as YAML. Profiles from
the config file are merged over the built-in nano, micro, small and large.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		var out interface{} = cfg.AllProfiles()
		if len(args) == 1 {
			p, err := cfg.Profile(args[0])
			if err != nil {
				return err
			}
			out = map[string]interface{}{args[0]: p}
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode profiles: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
