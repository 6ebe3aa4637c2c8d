package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/webtranscriber/internal/backend"
	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/config"
	"github.com/leonardotrapani/webtranscriber/internal/deps"
	"github.com/leonardotrapani/webtranscriber/internal/tui"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
	flagEndpoint string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "webtranscriber",
	Short:        "Stream audio transcriptions from a transcription service",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetOutput(os.Stderr)
		if flagLogLevel != "" {
			if err := setLogLevel(flagLogLevel); err != nil {
				return err
			}
		}
		return config.LoadDotEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $XDG_CONFIG_HOME/webtranscriber/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "service URL (overrides client.endpoint and "+config.EnvEndpoint+")")

	rootCmd.AddCommand(
		transcribeCmd(),
		downloadCmd(),
		serveCmd(),
		configCmd(),
		modelCmd(),
		doctorCmd(),
	)
}

func setLogLevel(s string) error {
	level, err := log.ParseLevel(s)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", s, err)
	}
	log.SetLevel(level)
	return nil
}

// loadConfig reads and validates the config file. The log level from the
// file applies unless --log-level was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if flagLogLevel == "" {
		if err := setLogLevel(cfg.Log.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func clientConfig(cfg *config.Config) client.Config {
	cc := cfg.ToClientConfig()
	if flagEndpoint != "" {
		cc.Endpoint = flagEndpoint
	}
	return cc
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription service",
		Long: `Run the HTTP transcription service.

The config file is watched while serving: engine, language, limits and model
changes apply to the next upload without a restart. The listen address is
read once at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")

	return cmd
}

func runServe(ctx context.Context, listen string) error {
	mgr, err := config.NewManager(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := mgr.GetConfig()
	if flagLogLevel == "" {
		if err := setLogLevel(cfg.Log.Level); err != nil {
			return err
		}
	}
	mgr.OnReload(func(c *config.Config) {
		if flagLogLevel == "" {
			_ = setLogLevel(c.Log.Level)
		}
	})

	if err := mgr.StartWatching(ctx); err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}
	defer mgr.Stop()

	if cfg.Server.Engine == backend.EngineWhisperCpp {
		for _, st := range []deps.Status{deps.CheckWhisperCli(cfg.Server.WhisperCpp.Binary), deps.CheckFFmpeg(cfg.Server.WhisperCpp.FFmpeg)} {
			if !st.Installed {
				log.Warn("required tool not found, uploads will fail", "tool", st.Name)
			}
		}
	}

	srv := backend.NewServer(backend.SettingsFunc(func() backend.Settings {
		return mgr.GetConfig().ToServerSettings()
	}))

	if listen == "" {
		listen = cfg.Server.Listen
	}
	return srv.ListenAndServe(ctx, listen)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.ResolvePath(flagConfig)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(flagConfig)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				return config.Encode(cmd.OutOrStdout(), cfg)
			},
		},
		configInitCmd(),
		configEditCmd(),
	)

	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ResolvePath(flagConfig)
			if err != nil {
				return err
			}
			if err := config.WriteDefault(path, force); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return fmt.Errorf("%w (use --force to overwrite)", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func configEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the configuration interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ResolvePath(flagConfig)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			edited, err := tui.Configure(cfg)
			if err != nil {
				if errors.Is(err, tui.ErrCancelled) {
					fmt.Fprintln(cmd.OutOrStdout(), "Configuration cancelled.")
					return nil
				}
				return fmt.Errorf("configuration form error: %w", err)
			}

			if err := config.Save(path, edited); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
			return nil
		},
	}
}
