package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parity/internal/catalog"
	"parity/internal/config"
	"parity/internal/report"
	"parity/internal/runner"
	"parity/internal/store"
	"parity/internal/uploader"
	"parity/internal/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	util.SetVerbose(cfg.Logging.Verbose)
	util.Infof("starting parity with %d worker(s) run=%s", cfg.Workers, cfg.RunInfo)
	if data, err := yaml.Marshal(&cfg); err == nil {
		util.Highlightf("config:\n%s", string(data))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ok, err := run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// run checks every configured problem and reports whether all of them met
// their expectation.
func run(ctx context.Context, cfg config.Config) (bool, error) {
	names := cfg.Problems
	if len(names) == 0 {
		names = catalog.Names()
	}
	problems := make([]catalog.Problem, 0, len(names))
	for _, name := range names {
		p, ok := catalog.Lookup(name)
		if !ok {
			return false, fmt.Errorf("unknown problem %q (known: %v)", name, catalog.Names())
		}
		problems = append(problems, p)
	}

	if cfg.Metrics.Listen != "" {
		shutdown := serveMetrics(cfg.Metrics)
		defer shutdown()
	}

	up, err := uploader.New(ctx, cfg.Storage)
	if err != nil {
		return false, err
	}
	if closer, ok := up.(io.Closer); ok {
		defer util.CloseWithErr(closer, "uploader")
	}
	var history *store.History
	if cfg.History.Enabled() {
		history, err = store.Open(ctx, cfg.History)
		if err != nil {
			return false, err
		}
		defer util.CloseWithErr(history, "history")
	}
	var reporter *report.Reporter
	if cfg.Report.Enabled {
		reporter = report.New(cfg.Report.OutputDir)
		reporter.UseUUIDPath = cfg.Report.UseUUIDPath
	}

	allOK := true
	for _, p := range problems {
		if ctx.Err() != nil {
			util.Warnf("interrupted, skipping remaining problems")
			return false, nil
		}
		res, err := runner.New(p.EntryPoint, cfg).Run(ctx)
		if res == nil {
			return false, err
		}
		if err != nil {
			util.Errorf("problem %s aborted: %v", p.Name, err)
			allOK = false
		}
		if res.Passed() != p.ExpectPass {
			allOK = false
			util.Highlightf("problem %s: expected pass=%t, got %s", p.Name, p.ExpectPass, res.CountsString())
		}
		location := publish(ctx, reporter, up, cfg, res)
		if history != nil {
			entry, err := store.NewEntry(res, cfg.RunInfo, location)
			if err == nil {
				err = history.Record(ctx, entry)
			}
			if err != nil {
				util.Warnf("history record failed run=%s err=%v", res.ID, err)
			}
		}
	}
	return allOK, nil
}

// publish writes the case directory and uploads it, returning the upload
// location. Failures are logged; they never change the run outcome.
func publish(ctx context.Context, reporter *report.Reporter, up uploader.Uploader, cfg config.Config, res *runner.RunResult) string {
	if reporter == nil {
		return ""
	}
	c, summary, err := reporter.Write(res, cfg.RunInfo, cfg.Report.Archive)
	if err != nil {
		util.Warnf("report write failed run=%s err=%v", res.ID, err)
		return ""
	}
	util.Infof("report written entry=%s dir=%s", res.EntryPoint, c.Dir)
	if !up.Enabled() {
		return ""
	}
	location, err := up.UploadDir(ctx, c.Dir)
	if err != nil {
		util.Warnf("upload failed dir=%s err=%v", c.Dir, err)
		return ""
	}
	summary.UploadLocation = location
	if err := reporter.WriteSummary(c, summary); err != nil {
		util.Warnf("summary update failed dir=%s err=%v", c.Dir, err)
	}
	util.Infof("report uploaded entry=%s location=%s", res.EntryPoint, location)
	return location
}

func serveMetrics(cfg config.MetricsConfig) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	srv := &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Warnf("metrics server stopped: %v", err)
		}
	}()
	util.Infof("metrics listening on %s%s", cfg.Listen, cfg.Path)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
