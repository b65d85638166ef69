// Package cli implements vltail, a tail(1) for the VersaLex XML event log.
package cli

import (
	"fmt"
	"os"
	"strings"
	"versalex-ingest/internal/follower"
	"versalex-ingest/internal/locator"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type options struct {
	cfgFile string
	follow  bool
	lines   string
	service string
	output  string
	plain   bool
}

// NewRootCmd builds the vltail command. Defaults for the service, init
// directory, poll interval and buffer size come from $HOME/.vltail.yaml or
// VLTAIL_* environment variables.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "vltail [flags] [file]",
		Short: "Print and follow the VersaLex XML event log",
		Long: `vltail prints the events of a VersaLex (Harmony, VLTrader, LexiCom) XML
event log the way the VersaLex UI lists them. Without a file it reads the
Harmony.xml of the named upstart service.

Examples:
  vltail -f
  vltail -n 20 -f /opt/cleo/Harmony/logs/Harmony.xml
  vltail -n +100 -o json -s cleo-vltrader`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("only one filename may be specified")
			}
			return nil
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, opts.cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd, v, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: $HOME/.vltail.yaml)")
	flags.BoolVarP(&opts.follow, "follow", "f", false, "follow until killed")
	flags.StringVarP(&opts.lines, "lines", "n", "", "show last N events (or skip +N events)")
	flags.StringVarP(&opts.service, "service", "s", "", "use logs for named upstart service")
	flags.StringVarP(&opts.output, "output", "o", "text", "output format: text, json")
	flags.BoolVar(&opts.plain, "plain", false, "disable colors in text output")

	v.SetDefault("service", locator.DefaultService)
	v.SetDefault("init-dir", locator.DefaultInitDir)
	v.SetDefault("interval", follower.DefaultInterval)
	v.SetDefault("buffer-size", follower.DefaultBufferSize)
	return cmd
}

// Execute runs vltail and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".vltail")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("vltail")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return nil
}
