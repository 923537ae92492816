package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/chmouel/treestatus/internal/log"
	"github.com/chmouel/treestatus/internal/metrics"
	"github.com/chmouel/treestatus/internal/watch"
	"github.com/prometheus/client_golang/prometheus"
	urfavecli "github.com/urfave/cli/v3"
)

func watchCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "watch",
		Usage:     "Keep the git status of a directory fresh and report changes",
		ArgsUsage: "[dir]",
		Flags:     watchFlags(),
		Action:    runWatch,
	}
}

// changeReporter prints a line whenever a root's state differs from the
// last one printed. It runs on the dispatcher loop only.
type changeReporter struct {
	svc  *gitstatus.Service
	out  io.Writer
	mu   sync.Mutex
	last map[string]string
}

func newChangeReporter(svc *gitstatus.Service, out io.Writer) *changeReporter {
	return &changeReporter{svc: svc, out: out, last: make(map[string]string)}
}

func describeState(state gitstatus.RootState) string {
	switch state.Phase {
	case gitstatus.PhaseReady:
		if state.Entries == 0 {
			return "clean"
		}
		return fmt.Sprintf("%d changed", state.Entries)
	case gitstatus.PhaseFailed:
		if state.Err != nil {
			return "failed: " + state.Err.Error()
		}
		return "failed"
	default:
		return state.Phase.String()
	}
}

func (r *changeReporter) report(bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, root := range r.svc.Roots() {
		state, ok := r.svc.RootState(root)
		if !ok || state.Phase == gitstatus.PhasePending {
			continue
		}
		desc := describeState(state)
		if r.last[root] == desc {
			continue
		}
		r.last[root] = desc
		fmt.Fprintf(r.out, "%s %s: %s\n", time.Now().Format(time.TimeOnly), root, desc)
	}
}

func runWatch(ctx context.Context, cmd *urfavecli.Command) error {
	dir, err := targetDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadCLIConfig(cmd, dir)
	if err != nil {
		return err
	}
	if addr := cmd.String("metrics-addr"); addr != "" {
		cfg.MetricsAddr = addr
	}
	// watching without status tracking would do nothing
	cfg.GitStatus.Enabled = true

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		recorder = prom
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		srv := serveMetrics(ln, prom.Handler())
		defer shutdownServer(srv)
		fmt.Fprintf(cmd.Root().ErrWriter, "serving metrics on http://%s/metrics\n", ln.Addr())
	}

	svc := newService(cfg, cmd.Root().ErrWriter, recorder)
	defer svc.Shutdown()
	reporter := newChangeReporter(svc, cmd.Root().Writer)
	svc.SetRefreshFunc(reporter.report)

	notifier := watch.NewSaveNotifier(svc, svc.Dispatcher(), log.Printf)
	if err := notifier.Start(); err != nil {
		log.Printf("bootstrap: save notifier unavailable: %v", err)
	} else {
		notifier.SetDirs(dir)
		defer notifier.Stop()
	}

	if svc.RefreshPath(dir) == nil {
		return fmt.Errorf("%s: %w", dir, gitstatus.ErrNoRoot)
	}

	svc.Dispatcher().Run(ctx)
	return nil
}

func serveMetrics(ln net.Listener, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("bootstrap: metrics server: %v", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
