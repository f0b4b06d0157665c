package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommender",
		Short: "Acquire and rank property listings for a buyer profile",
		Long: `recommender turns a free-form buyer profile into a validated listings
search, drains the paginated results, normalizes every listing against a
target schema and ranks the outcome against the profile.

Configuration comes from config.yaml or PROPREC_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
