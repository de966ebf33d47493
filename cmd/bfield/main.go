// Command bfield queries, inspects and converts ATLAS magnetic field maps.
//
// Usage:
//
//	bfield query <map> [x y z]
//	bfield info <map>
//	bfield convert <in> <out>
//	bfield compare <mapA> <mapB>
//	bfield h8 <file> <x> <y> <z>
//
// Coordinates are in mm. Maps are read from the packed text format, the
// binary record format (.bfm) or a SQLite store (.db).
package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/geal-ai/bfieldmap/internal/config"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bfield",
	Short: "Query and convert ATLAS magnetic field maps",
	Long: `bfield evaluates the ATLAS magnetic field from a field map: trilinear
interpolation over the zone meshes plus the Biot-Savart field of the
modelled conductors. Positions are given in mm, fields are printed in tesla.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(queryCmd, infoCmd, convertCmd, compareCmd, h8Cmd)
}

// setupLogging writes console-formatted logs to stderr so stdout carries
// only results.
func setupLogging(level string) {
	var lvl zerolog.Level
	switch strings.ToUpper(level) {
	case "TRACE":
		lvl = zerolog.TraceLevel
	case "DEBUG":
		lvl = zerolog.DebugLevel
	case "WARN":
		lvl = zerolog.WarnLevel
	case "ERROR":
		lvl = zerolog.ErrorLevel
	default:
		lvl = zerolog.InfoLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
