package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/memosono/internal/config"
	"github.com/cory-johannsen/memosono/internal/observability"
	"github.com/cory-johannsen/memosono/internal/simulation"
	"github.com/cory-johannsen/memosono/internal/tunnel"
)

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":                "logging.level",
	"log-format":               "logging.format",
	"service":                  "activity.service",
	"room":                     "activity.room",
	"grid-size":                "activity.grid_size",
	"call-timeout":             "session.call_timeout",
	"fixture":                  "network.fixture",
	"channel-specific-handles": "network.channel_specific_handles",
	"provide-tubes":            "network.provide_tubes",
	"joiners":                  "simulation.joiners",
	"timeout":                  "simulation.timeout",
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configPath string

	cmd := &cobra.Command{
		Use:     "memosono",
		Short:   "Shared-activity session establishment for the Memosono memory game.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
	}

	cmd.SetGlobalNormalizationFunc(normalize)

	pfs := cmd.PersistentFlags()
	pfs.StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file (env: MEMOSONO_CONFIG)")
	pfs.String("log-level", "info", "minimum log level: debug, info, warn, error (env: MEMOSONO_LOGGING_LEVEL)")
	pfs.String("log-format", "console", "log format: json or console (env: MEMOSONO_LOGGING_FORMAT)")
	pfs.String("service", tunnel.DefaultService, "tunnel service name (env: MEMOSONO_ACTIVITY_SERVICE)")
	pfs.String("room", "memosono", "room the activity is shared in (env: MEMOSONO_ACTIVITY_ROOM)")
	pfs.Int("grid-size", 4, "side length of the board (env: MEMOSONO_ACTIVITY_GRID_SIZE)")
	pfs.Duration("call-timeout", 5*time.Second, "timeout for each presence call (env: MEMOSONO_SESSION_CALL_TIMEOUT)")
	bindFlags(v, pfs)

	load := func() (config.Config, error) {
		if configPath == "" {
			configPath = v.GetString("config")
		}
		if configPath != "" {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return config.Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
		return config.LoadFromViper(v)
	}

	cmd.AddCommand(newSimulateCmd(v, load), newConfigCmd(v, load))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("memosono v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func newSimulateCmd(v *viper.Viper, load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one sharer and N joiners on an in-process presence network.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := observability.NewLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			sim, cleanup, err := initializeSimulation(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info("starting simulation",
				zap.String("service", cfg.Activity.Service),
				zap.Int("participants", len(sim.Participants())),
			)
			report, err := sim.Run(cmd.Context())
			printReport(cmd.OutOrStdout(), report)
			return err
		},
	}

	fs := cmd.Flags()
	fs.IntP("joiners", "n", 1, "number of participants joining the sharer (env: MEMOSONO_SIMULATION_JOINERS)")
	fs.Duration("timeout", 10*time.Second, "bound on the whole simulation (env: MEMOSONO_SIMULATION_TIMEOUT)")
	fs.String("fixture", "", "YAML network fixture; overrides the generated participants (env: MEMOSONO_NETWORK_FIXTURE)")
	fs.Bool("channel-specific-handles", true, "give room members channel-specific handles (env: MEMOSONO_NETWORK_CHANNEL_SPECIFIC_HANDLES)")
	fs.Bool("provide-tubes", false, "open a tubes channel with every text channel (env: MEMOSONO_NETWORK_PROVIDE_TUBES)")
	bindFlags(v, fs)
	return cmd
}

func newConfigCmd(v *viper.Viper, load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := load(); err != nil {
				return err
			}
			out, err := yaml.Marshal(v.AllSettings())
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// normalize accepts snake_case spellings of every flag.
func normalize(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// bindFlags makes every changed flag in fs override its configuration key.
// Unchanged flags leave the key to the config file, environment, or defaults.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			_ = v.BindEnv(f.Name)
			return
		}
		_ = v.BindPFlag(key, f)
	})
}

func printReport(w io.Writer, r simulation.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "room %s\n", r.Room)
	fmt.Fprintln(tw, "NICK\tROLE\tSTATE\tPEERS\tSTATUS")
	for _, p := range r.Participants {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Nick, p.Role, p.State, strings.Join(p.Peers, ","), p.Status)
	}
	_ = tw.Flush()
}
