package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuongvomanh/detect-shot/internal/config"
	"github.com/cuongvomanh/detect-shot/internal/features"
	"github.com/cuongvomanh/detect-shot/internal/logging"
	"github.com/cuongvomanh/detect-shot/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "detectshot",
	Short:         "detectshot - shot boundary detection",
	Long:          "Finds hard cuts and gradual transitions in a video by tracking how much of each frame's content survives into the next.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// load .env if present
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return err
		}

		if err := logging.Init(logging.Options{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Verbose: verbose,
		}); err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./detectshot.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./detectshot.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if util.FileExists(path) && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("wrote default config")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:       "list [features|env]",
	Short:     "List available resources",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"features", "env"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "features":
			for _, name := range features.Names() {
				spec, _ := features.Parse(name)
				fmt.Fprintf(out, "%-6s %-8s %s\n", name, spec.Norm(), features.Describe(spec.Family))
			}
			fmt.Fprintf(out, "\nappend %q to match with FLANN instead of brute force, e.g. sift-flann\n", "-flann")
		case "env":
			for _, name := range config.EnvNames() {
				fmt.Fprintln(out, config.EnvPrefix+name)
			}
		default:
			return fmt.Errorf("unknown resource %q (want features or env)", args[0])
		}
		return nil
	},
}
