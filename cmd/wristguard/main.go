// Package main provides the CLI entrypoint for wristguard.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/wristguard/internal/config"
	"github.com/ayusman/wristguard/internal/store"
)

var (
	configPath string

	serveAddr       string
	serveCamera     string
	serveDB         string
	serveNoJournal  bool
	serveRedis      string
	servePluginDir  string
	serveNoPlugins  bool
	serveTray       bool
	serveStaticDir  string
	serveQuality    int
	serveLogLevel   string
	serveLogFormat  string
	serveTooHigh    time.Duration
	serveAboveElbow time.Duration

	episodesLimit int
	episodesJSON  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:          "wristguard",
		Short:        "Watch your typing posture through the webcam",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runServeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")

	flags := rootCmd.Flags()
	flags.StringVar(&serveAddr, "addr", defaults.Server.Addr, "HTTP listen address")
	flags.StringVar(&serveCamera, "camera", defaults.Camera.Source, "camera device index or video file/URL")
	flags.StringVar(&serveDB, "db", defaults.Journal.Path, "alert journal database path")
	flags.BoolVar(&serveNoJournal, "no-journal", false, "do not record alert episodes")
	flags.StringVar(&serveRedis, "redis", "", "publish alert events to this Redis address")
	flags.StringVar(&servePluginDir, "plugins-dir", defaults.Plugins.Dir, "alert plugin directory")
	flags.BoolVar(&serveNoPlugins, "no-plugins", false, "do not run alert plugins")
	flags.BoolVar(&serveTray, "tray", defaults.Tray.Enabled, "show a system tray indicator")
	flags.StringVar(&serveStaticDir, "static-dir", "", "serve the viewer page from this directory")
	flags.IntVar(&serveQuality, "quality", defaults.Server.JPEGQuality, "JPEG quality of the video stream (1-100)")
	flags.StringVar(&serveLogLevel, "log-level", defaults.Log.Level, "log level: debug, info, warn, error")
	flags.StringVar(&serveLogFormat, "log-format", defaults.Log.Format, "log format: text, json")
	flags.DurationVar(&serveTooHigh, "too-high-after", defaults.Posture.WristTooHighAfter, "how long the wrist may stay too high")
	flags.DurationVar(&serveAboveElbow, "above-elbow-after", defaults.Posture.WristAboveElbowAfter, "how long the wrist may stay above the elbow")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newEpisodesCmd())

	return rootCmd
}

// loadConfig reads the config file and lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	applyStringFlag(cmd, "addr", &cfg.Server.Addr, serveAddr)
	applyStringFlag(cmd, "camera", &cfg.Camera.Source, serveCamera)
	applyStringFlag(cmd, "db", &cfg.Journal.Path, serveDB)
	applyStringFlag(cmd, "redis", &cfg.Redis.Addr, serveRedis)
	applyStringFlag(cmd, "plugins-dir", &cfg.Plugins.Dir, servePluginDir)
	applyBoolFlag(cmd, "tray", &cfg.Tray.Enabled, serveTray)
	applyStringFlag(cmd, "static-dir", &cfg.Server.StaticDir, serveStaticDir)
	applyIntFlag(cmd, "quality", &cfg.Server.JPEGQuality, serveQuality)
	applyStringFlag(cmd, "log-level", &cfg.Log.Level, serveLogLevel)
	applyStringFlag(cmd, "log-format", &cfg.Log.Format, serveLogFormat)
	applyDurationFlag(cmd, "too-high-after", &cfg.Posture.WristTooHighAfter, serveTooHigh)
	applyDurationFlag(cmd, "above-elbow-after", &cfg.Posture.WristAboveElbowAfter, serveAboveElbow)
	if flagChanged(cmd, "no-journal") && serveNoJournal {
		cfg.Journal.Enabled = false
	}
	if flagChanged(cmd, "no-plugins") && serveNoPlugins {
		cfg.Plugins.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", configPath)
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newEpisodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "List recorded alert episodes, newest first",
		Args:  cobra.NoArgs,
		RunE:  runEpisodesCmd,
	}
	cmd.Flags().IntVar(&episodesLimit, "limit", 20, "number of episodes to show")
	cmd.Flags().BoolVar(&episodesJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func runEpisodesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if episodesLimit < 1 {
		return fmt.Errorf("--limit must be positive")
	}

	st, err := store.New(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer st.Close()

	episodes, err := st.Episodes().List(context.Background(), episodesLimit)
	if err != nil {
		return fmt.Errorf("failed to list episodes: %w", err)
	}

	out := cmd.OutOrStdout()
	if episodesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if episodes == nil {
			episodes = []*store.Episode{}
		}
		return enc.Encode(episodes)
	}

	if len(episodes) == 0 {
		fmt.Fprintln(out, "No episodes recorded.")
		return nil
	}
	return writeEpisodeTable(out, episodes)
}

func writeEpisodeTable(out io.Writer, episodes []*store.Episode) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RAISED\tALERT\tDURATION\tID")
	for _, e := range episodes {
		duration := "open"
		if !e.Open() {
			duration = e.Duration().Round(100 * time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.RaisedAt.Local().Format(time.DateTime), e.Alert, duration, e.ID)
	}
	return tw.Flush()
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if flagChanged(cmd, name) {
		*target = value
	}
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if flagChanged(cmd, name) {
		*target = value
	}
}

func applyBoolFlag(cmd *cobra.Command, name string, target *bool, value bool) {
	if flagChanged(cmd, name) {
		*target = value
	}
}

func applyDurationFlag(cmd *cobra.Command, name string, target *time.Duration, value time.Duration) {
	if flagChanged(cmd, name) {
		*target = value
	}
}
