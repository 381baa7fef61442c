// Command repack compiles schema files and renders their requested
// outputs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/repack/compiler/driver"
	"github.com/syssam/repack/config"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "repack",
	Short:         "Schema-driven, multi-target code generator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func run(mode driver.Mode, schemaPath, environment string) error {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "repack: %v\n", err)
	}
	errs := driver.Run(driver.Config{
		Schema:     schemaPath,
		Blueprints: cfg.Blueprints,
		Workers:    cfg.Workers,
		Verbose:    verbose || cfg.Verbose,
	}, mode, environment)
	if errs.HasErrors() {
		for _, e := range errs.Errors() {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		os.Exit(1)
	}
	return nil
}

var buildCmd = &cobra.Command{
	Use:   "build <schema.repack>",
	Short: "Run all outputs of kind code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(driver.Build, args[0], "")
	},
}

var documentCmd = &cobra.Command{
	Use:   "document <schema.repack>",
	Short: "Run all outputs of kind document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(driver.Document, args[0], "")
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure <env> <schema.repack>",
	Short: "Run outputs of kind configure for one environment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(driver.Configure, args[1], args[0])
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean <schema.repack>",
	Short: "Remove the files prior runs would have produced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(driver.Clean, args[0], "")
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostics")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to .repack.yaml")
	rootCmd.AddCommand(buildCmd, documentCmd, configureCmd, cleanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "repack: %v\n", err)
		os.Exit(2)
	}
}
