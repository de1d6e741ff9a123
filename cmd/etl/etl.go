// Package etl implements the one-shot pipeline run command.
package etl

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusdash/campusdash/internal/bootstrap"
	"github.com/campusdash/campusdash/internal/logger"
)

// Command returns the etl command, which runs the normalization pipeline
// once and exits.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Run the normalization pipeline once",
		Long:  `Reads the raw record log, normalizes it course by course, and merges the result into the structured database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := bootstrap.NewComponents(viper.GetViper())
			if err != nil {
				return err
			}
			defer comps.Close()

			stats, err := comps.Pipeline.Run(cmd.Context())
			if err != nil {
				comps.Log.Error("pipeline run failed", logger.Error(err))
				return fmt.Errorf("run pipeline: %w", err)
			}

			fmt.Printf("processed %d raw records across %d courses: %d items normalized, %d total\n",
				stats.RawRecords, stats.Courses, stats.NewItems, stats.TotalItems)
			return nil
		},
	}
}
