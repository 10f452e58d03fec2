// Command mvtcodec converts between vector tiles and FlatGeobuf or GeoJSON.
//
//	mvtcodec encode --tile 14/8185/5449 -o tile.mvt roads.fgb water.geojson
//	mvtcodec decode --tile 14/8185/5449 tile.mvt
package main

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// command carries the state shared by the subcommands.
type command struct {
	*cobra.Command

	cfg    *config
	logger *log.Logger
}

func newRootCmd() *command {
	c := &command{logger: log.New()}

	c.Command = &cobra.Command{
		Use:           "mvtcodec",
		Short:         "encode and decode Mapbox Vector Tiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	f := c.PersistentFlags()
	f.String(flagConfig, "", "YAML config file")
	f.String(flagLogLevel, log.InfoLevel.String(), "log level (debug, info, warn, error)")

	c.AddCommand(newEncodeCmd(c), newDecodeCmd(c))
	return c
}

// setup loads the config file, applies the flags and configures logging.
func (c *command) setup(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if err := cfg.applyFlags(cmd.Flags()); err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	c.logger.SetLevel(level)
	c.logger.SetOutput(cmd.ErrOrStderr())

	c.cfg = cfg
	return nil
}

func (c *command) stdout() io.Writer {
	return c.OutOrStdout()
}
