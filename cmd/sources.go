package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/registry"
)

var sourcesFile string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the source registry",
}

var sourcesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert sources from the YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		file := sourcesFile
		if file == "" {
			file = cfg.Sources.SeedFile
		}
		sources, err := registry.LoadSources(file)
		if err != nil {
			return err
		}

		n, err := s.SeedSources(cmd.Context(), sources)
		if err != nil {
			return err
		}
		zap.L().Info("sources seeded", zap.String("file", file), zap.Int64("count", n))
		return nil
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		sources, err := s.ListSources(cmd.Context(), false)
		if err != nil {
			return err
		}
		for _, src := range sources {
			cmd.Printf("%-28s %-10s %-22s enabled=%-5t feed=%s\n",
				src.Slug, src.Tier, src.Category, src.Enabled, src.RSSFeed)
		}
		return nil
	},
}

func init() {
	sourcesSeedCmd.Flags().StringVar(&sourcesFile, "file", "", "seed file path (default from config)")
	sourcesCmd.AddCommand(sourcesSeedCmd, sourcesListCmd)
	rootCmd.AddCommand(sourcesCmd)
}
