package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PeterSaffarian/replit-propertyrecommender/config"
)

func newRunCmd() *cobra.Command {
	var (
		profilePath     string
		refreshMetadata bool
		maxPages        int
		maxRecords      int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the acquisition pipeline for one buyer profile",
		Example: `  # Run with a profile file, writing artifacts to the output directory
  recommender run --profile profile.json

  # Cap the search to two pages and re-fetch the reference metadata
  recommender run --profile profile.json --max-pages 2 --refresh-metadata`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(profilePath)
			if err != nil {
				return fmt.Errorf("read profile: %w", err)
			}
			var profile map[string]any
			if err := json.Unmarshal(data, &profile); err != nil {
				return fmt.Errorf("parse profile: %w", err)
			}

			pipeline, err := buildPipeline(cmd.Context(), cfg, refreshMetadata)
			if err != nil {
				return err
			}

			opts := fetchOptions(cfg)
			if maxPages > 0 {
				opts.MaxPages = maxPages
			}
			if maxRecords > 0 {
				opts.MaxRecords = maxRecords
			}

			result, err := pipeline.Run(cmd.Context(), profile, opts)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "path to the buyer profile JSON file")
	cmd.Flags().BoolVar(&refreshMetadata, "refresh-metadata", false, "bypass the metadata file cache")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "cap on search pages (0 = configured default)")
	cmd.Flags().IntVar(&maxRecords, "max-records", 0, "cap on collected listings (0 = configured default)")
	cmd.MarkFlagRequired("profile")

	return cmd
}
