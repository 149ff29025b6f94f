//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-starload.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-starload/internal/calendar"
	"github.com/pgEdge/pgedge-starload/internal/config"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
	"github.com/pgEdge/pgedge-starload/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	dataDir    string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-starload",
		Short: "Load e-commerce extracts into a PostgreSQL star schema",
		Long: `pgedge-starload reads the CSV extracts of a Brazilian e-commerce
platform, cleans and conforms them, and loads them into a star schema of
five dimensions and one order item fact table in PostgreSQL.

Customer and seller cities are matched against a reference list of
Brazilian municipalities, exactly where possible and by edit distance
otherwise. Rows that cannot be parsed, resolved or committed are counted
and reported; they never stop the run.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-starload.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string of the warehouse")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"directory holding the CSV extracts")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(calendarsCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if dataDir != "" {
		cfg.Source.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logging.Init(logCfg)

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the warehouse DDL",
	Long: `Print the CREATE TABLE statements of the star schema in load order:
the five dimensions first, then the fact table.`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range warehouse.All() {
			cmd.Println(warehouse.CreateTableSQL(t) + ";")
			cmd.Println()
		}
	},
}

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List available holiday calendars",
	Long: `List the holiday calendars that can be used to flag holidays in the
time dimension (load.holiday_calendar).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println("Available holiday calendars:")
		cmd.Println()
		names := calendar.List()
		width := 0
		for _, name := range names {
			width = max(width, len(name))
		}
		for _, name := range names {
			c, err := calendar.Get(name)
			if err != nil {
				return err
			}
			cmd.Println(fmt.Sprintf("  %s%s - %s", name,
				strings.Repeat(" ", width-len(name)), c.Description()))
		}
		return nil
	},
}
