package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.aimuz.me/acap/audiocapture"
	"go.aimuz.me/acap/catalog"
	"go.aimuz.me/acap/config"
	"go.aimuz.me/acap/hotkey"
	"go.aimuz.me/acap/hotkey/oshook"
	"go.aimuz.me/acap/internal/types"
	"go.aimuz.me/acap/recordings"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "acap",
	Short: "Record system audio to WAV files",
	Long: `acap records whatever the system is playing into WAV files.

Flags and ACAP_DIR, ACAP_DURATION and ACAP_BACKEND override the stored
configuration for a single run.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record system audio",
	RunE: func(cmd *cobra.Command, args []string) error {
		continuous, _ := cmd.Flags().GetBool("main")
		return record(cmd.Context(), continuous)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recordings in the save directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return list()
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print function-key presses until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listen(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("acap %s (commit %s, built %s)\n", version, commit, date)
		fmt.Printf("backends: %v (default %s)\n", audiocapture.Backends(), audiocapture.DefaultBackend)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/acap/config.toml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.String("dir", "", "save directory")
	pf.String("backend", "", "audio backend")

	recordCmd.Flags().Int("duration", 0, "recording length in seconds")
	recordCmd.Flags().Bool("main", false, "record main.wav until interrupted")

	viper.SetEnvPrefix("ACAP")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("dir", pf.Lookup("dir"))
	_ = viper.BindPFlag("backend", pf.Lookup("backend"))
	_ = viper.BindPFlag("duration", recordCmd.Flags().Lookup("duration"))

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the stored configuration and applies flag and environment
// overrides. Overrides are not saved.
func loadConfig() (config.Config, *config.Store, error) {
	var store *config.Store
	if cfgFile != "" {
		store = config.NewStore(cfgFile)
	} else {
		s, err := config.Open()
		if err != nil {
			return config.Config{}, nil, err
		}
		store = s
	}

	cfg := store.Get()
	if dir := viper.GetString("dir"); dir != "" {
		cfg.SavePath = dir
	}
	if backend := viper.GetString("backend"); backend != "" {
		cfg.Backend = backend
	}
	if secs := viper.GetInt("duration"); secs != 0 {
		cfg.RecordingDurationInSecs = secs
	}
	if err := cfg.Validate(); err != nil {
		return cfg, store, err
	}
	return cfg, store, nil
}

// openCatalog opens the catalog next to the config file. The desktop app
// holds the database lock while it runs, so failure is not fatal.
func openCatalog(store *config.Store) *catalog.Catalog {
	path := filepath.Join(filepath.Dir(store.Path()), "catalog")
	c, err := catalog.Open(path)
	if err != nil {
		slog.Warn("open catalog, recording metadata will not be saved", "path", path, "error", err)
		return nil
	}
	return c
}

func record(ctx context.Context, continuous bool) error {
	cfg, store, err := loadConfig()
	if err != nil {
		return err
	}

	dir, err := recordings.EnsureDir(cfg.SavePath)
	if err != nil {
		return err
	}

	var path string
	duration := cfg.Duration()
	if continuous {
		path, err = audiocapture.MainTarget(dir)
		duration = 0
	} else {
		path, err = audiocapture.AdHocTarget(dir, time.Now())
	}
	if err != nil {
		return err
	}

	host, err := audiocapture.OpenHost(cfg.Backend)
	if err != nil {
		return fmt.Errorf("open audio backend: %w", err)
	}

	if continuous {
		fmt.Fprintf(os.Stderr, "recording %s, press Ctrl-C to stop\n", path)
	} else {
		fmt.Fprintf(os.Stderr, "recording %s for %s\n", path, duration)
	}

	res, err := audiocapture.NewSession(audiocapture.Options{
		Host:     host,
		Path:     path,
		Duration: duration,
	}).Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", audiocapture.Kind(err), err)
	}

	if c := openCatalog(store); c != nil {
		defer c.Close()
		if err := c.Put(catalog.InfoFromResult(res)); err != nil {
			slog.Warn("save recording info", "error", err)
		}
	}

	if res.Stats.Frames > 0 && res.Stats.Silent() {
		fmt.Fprintln(os.Stderr, "warning: recording is silent, is the output muted?")
	}
	fmt.Printf("%s\t%d frames\t%d dropped\t%s\n",
		res.Path, res.Stats.Frames, res.Stats.Dropped, res.Elapsed.Round(time.Millisecond))
	return nil
}

func list() error {
	cfg, store, err := loadConfig()
	if err != nil {
		return err
	}
	files, err := recordings.List(cfg.SavePath)
	if err != nil {
		return err
	}

	var infos map[string]types.RecordingInfo
	if c := openCatalog(store); c != nil {
		defer c.Close()
		if infos, err = c.All(); err != nil {
			slog.Warn("load recording info", "error", err)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tFORMAT\tFRAMES\tDROPPED")
	for _, f := range files {
		format, frames, dropped := "-", "-", "-"
		if info, ok := infos[f.Name]; ok {
			format = fmt.Sprintf("%s %dch %dHz", info.Format, info.Channels, info.SampleRate)
			frames = fmt.Sprint(info.Frames)
			dropped = fmt.Sprint(info.Dropped)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", f.Name, f.Size, format, frames, dropped)
	}
	return w.Flush()
}

func listen(ctx context.Context) error {
	broker := hotkey.NewBroker()
	defer broker.Close()

	sub, unsubscribe := broker.Subscribe(16)
	defer unsubscribe()

	l := hotkey.NewListener(oshook.New(), broker)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	fmt.Fprintln(os.Stderr, "listening for F1..F12, press Ctrl-C to stop")
	for {
		select {
		case ev := <-sub:
			fmt.Printf("%s\t%s\n", ev.Category, ev.Label)
		case err := <-errc:
			if errors.Is(err, hotkey.ErrListenerInstall) {
				return err
			}
			return nil
		}
	}
}
