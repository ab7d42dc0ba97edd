package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irbid-geoai/geoai-monitor/internal/config"
	"github.com/irbid-geoai/geoai-monitor/internal/container"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

type runOptions struct {
	aoiFile   string
	reducer   string
	scale     float64
	maxPixels float64
}

func runSubcommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <module>",
		Short: "Runs one analysis module and prints its result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  opts.run,
	}
	cmd.Flags().StringVar(&opts.aoiFile, "aoi", "", "GeoJSON area of interest for zonal statistics")
	cmd.Flags().StringVar(&opts.reducer, "reducer", "", "zonal reducer (mean, median, min, max, sum, stddev, count)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "zonal sampling scale in metres")
	cmd.Flags().Float64Var(&opts.maxPixels, "max-pixels", 0, "zonal pixel budget")
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, args []string) error {
	req := dispatch.Request{
		Reducer:   o.reducer,
		Scale:     o.scale,
		MaxPixels: o.maxPixels,
	}
	if o.aoiFile != "" {
		data, err := os.ReadFile(o.aoiFile)
		if err != nil {
			return fmt.Errorf("read AOI: %w", err)
		}
		req.AOI = data
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	c, err := container.NewContainer(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.Dispatcher().Dispatch(cmd.Context(), args[0], req)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Details != "" {
			return fmt.Errorf("%w (%s)", err, appErr.Details)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
