package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"onevents/internal/build"
	"onevents/internal/config"
	appLog "onevents/internal/log"
	"onevents/internal/metrics"
	"onevents/internal/scheduler"
	"onevents/internal/web"
)

const version = "0.3.0"

var (
	configPath string
	logLevel   string
	serveWatch bool
	forceInit  bool

	conf *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "onevents",
	Short:         "Build the OnEvents listing page and calendar feeds",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if cmd == initConfigCmd {
			return nil
		}

		var err error
		conf, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			conf.LogLevel = logLevel
		}
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

		appLog.Info("onevents starting", "version", version, "config", configPath)
		appLog.Debug("effective config",
			"events_dir", conf.EventsDir,
			"template", conf.Template,
			"output_dir", conf.OutputDir,
			"base_url", conf.BaseURL,
			"timezone", conf.Timezone,
			"refresh", conf.RefreshCron,
			"preview", conf.Preview.Enabled,
		)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context())
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build now, then rebuild on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := build.New(conf, newRecorder())
		if err != nil {
			return err
		}
		return watch(cmd.Context(), p, nil)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built site over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		srv, rec := newSiteServer(serveWatch)
		if !serveWatch {
			return web.StartServer(ctx, srv)
		}

		p, err := build.New(conf, rec)
		if err != nil {
			return err
		}
		errCh := make(chan error, 1)
		go func() { errCh <- watch(ctx, p, srv) }()

		serr := web.StartServer(ctx, srv)
		cancel()
		if werr := <-errCh; serr == nil {
			serr = werr
		}
		return serr
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !forceInit {
			return errors.New(configPath + " already exists, use --force to overwrite")
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		appLog.Info("config written", "path", configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "onevents.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info or error (overrides config)")

	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "also rebuild on the configured schedule and expose /metrics")
	initConfigCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")

	rootCmd.AddCommand(buildCmd, watchCmd, serveCmd, initConfigCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		appLog.Error("onevents failed", err)
		os.Exit(1)
	}
}

// newSiteServer builds the HTTP server for the output directory. /metrics
// is mounted only when this process runs the builds it reports on.
func newSiteServer(watching bool) (*web.Server, *metrics.Recorder) {
	srv := web.NewServer(conf)
	if !watching {
		return srv, nil
	}
	rec := metrics.NewRecorder()
	srv.Handle("/metrics", rec.Handler())
	return srv, rec
}

func newRecorder() *metrics.Recorder {
	if conf.MetricsFile == "" {
		return nil
	}
	return metrics.NewRecorder()
}

func runBuild(ctx context.Context) error {
	p, err := build.New(conf, newRecorder())
	if err != nil {
		return err
	}
	_, err = p.Run(ctx)
	return err
}

// watch builds once, then on every tick of the schedule. A failed build is
// logged and the previous site stays in place. srv may be nil.
func watch(ctx context.Context, p *build.Pipeline, srv *web.Server) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		rep, err := p.Run(ctx)
		if srv != nil {
			srv.RecordBuild(status(rep, err))
		}
		return err
	}

	sched, err := scheduler.New(conf.RefreshCron, loc, job)
	if err != nil {
		return err
	}

	if err := job(ctx); err != nil {
		appLog.Error("initial build failed", err)
	}
	appLog.Info("next rebuild", "at", sched.Next(time.Now()).Format(time.RFC3339))

	return sched.Run(ctx)
}

func status(rep build.Report, err error) web.BuildStatus {
	st := web.BuildStatus{
		FinishedAt: rep.FinishedAt,
		Duration:   rep.Duration().String(),
		Events:     rep.Events,
		Upcoming:   rep.Upcoming,
		Files:      rep.Documents,
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}
