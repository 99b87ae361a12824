package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	buildTime    = "unknown"
	buildVersion = "dev"
)

func RootCmd() *cobra.Command {
	configPath := "config.yaml"
	rootCmd := &cobra.Command{
		Use:   "blinkt-status",
		Short: "Show network and CPU status on a Blinkt! LED strip",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Flags().Lookup("debug").Changed {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newStartCmd(&configPath))
	rootCmd.AddCommand(newSetCmd(&configPath))
	rootCmd.AddCommand(newClearCmd(&configPath))
	rootCmd.AddCommand(newEffectCmd(&configPath))
	rootCmd.PersistentFlags().Bool("debug", false, "Turn on debug logging.")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "Path to the configuration file.")

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s (built: %s)\n", buildVersion, buildTime)
		},
	}
}

func newStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Starts the status monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := readConfig(*configPath)
			if err != nil {
				return err
			}
			return startMonitor(conf)
		},
	}
}

func newSetCmd(configPath *string) *cobra.Command {
	brightness := -1.0
	cmd := &cobra.Command{
		Use:   "set <index|all> <rrggbb>",
		Short: "Set one or all pixels and leave them lit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := readConfig(*configPath)
			if err != nil {
				return err
			}
			color, err := parseColor(args[1])
			if err != nil {
				return err
			}
			index := -1
			if args[0] != "all" {
				if index, err = strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("invalid pixel index %q", args[0])
				}
			}
			return setPixels(conf, index, color, brightness)
		},
	}

	cmd.Flags().Float64VarP(&brightness, "brightness", "b", brightness, "Brightness from 0.0 to 1.0. Keeps the configured brightness when omitted.")

	return cmd
}

func newClearCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Turn all pixels off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := readConfig(*configPath)
			if err != nil {
				return err
			}
			return clearPixels(conf)
		},
	}
}

func newEffectCmd(configPath *string) *cobra.Command {
	colorArg := "00ff00"
	duration := 10 * time.Second
	cmd := &cobra.Command{
		Use:       "effect <flash|rainbow|breathe>",
		Short:     "Play an effect on the strip",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"flash", "rainbow", "breathe"},
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := readConfig(*configPath)
			if err != nil {
				return err
			}
			color, err := parseColor(colorArg)
			if err != nil {
				return err
			}
			return playEffect(conf, args[0], color, duration)
		},
	}

	cmd.Flags().StringVar(&colorArg, "color", colorArg, "Effect color as rrggbb.")
	cmd.Flags().DurationVar(&duration, "duration", duration, "How long to breathe for.")

	return cmd
}

func parseColor(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || v > 0xffffff {
		return 0, fmt.Errorf("invalid color %q, expected rrggbb", s)
	}
	return uint32(v), nil
}
