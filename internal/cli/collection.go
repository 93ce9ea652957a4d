package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"semstore/internal/domain"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage the vector collection",
}

var collectionEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the collection if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return provision(cmd, domain.CreateIfMissing)
	},
}

var collectionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the collection, discarding every stored point",
	RunE: func(cmd *cobra.Command, args []string) error {
		return provision(cmd, domain.AlwaysRecreate)
	},
}

var collectionCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored points",
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, release, err := openStore(cmd.Context(), GetConfig(), GetRootDir(), logger, nil)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer release()

		n, err := vs.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("count failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionEnsureCmd, collectionResetCmd, collectionCountCmd)
}

func provision(cmd *cobra.Command, policy domain.Policy) error {
	vs, release, err := openStore(cmd.Context(), GetConfig(), GetRootDir(), logger, &policy)
	if err != nil {
		return fmt.Errorf("failed to provision collection: %w", err)
	}
	defer release()

	c := vs.Collection()
	fmt.Fprintf(cmd.OutOrStdout(), "Collection %s ready (dimension %d, %s, %s)\n", c.Name, c.Dimension, c.Distance, policy)
	return nil
}
