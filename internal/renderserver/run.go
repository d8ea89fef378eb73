package renderserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/r9s-ai/render-interceptor/internal/logx"
	"github.com/r9s-ai/render-interceptor/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// server owns everything Run starts; close releases it in reverse order.
type server struct {
	cfg      *config.Config
	views    viewEngine
	metrics  *renderMetrics
	reloadMu sync.Mutex
	closers  []io.Closer
}

func (s *server) onClose(c io.Closer) {
	if c != nil {
		s.closers = append(s.closers, c)
	}
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// Run serves cfgPath's views until SIGINT or SIGTERM. SIGHUP reloads views.
func Run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s := &server{cfg: cfg}
	defer s.close()

	handler, err := s.setup()
	if err != nil {
		return err
	}
	return s.serve(handler)
}

func (s *server) setup() (http.Handler, error) {
	cfg := s.cfg
	access, err := openAccessLog(cfg)
	if err != nil {
		return nil, fmt.Errorf("init access log: %w", err)
	}
	s.onClose(access.closer)

	pid, err := writePIDFile(cfg)
	if err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	s.onClose(pid)

	s.views, err = newViewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("load views dir %q: %w", cfg.Views.Dir, err)
	}
	if cfg.Metrics.Enabled {
		s.metrics = newRenderMetrics()
	}

	s.onClose(installReloadSignalHandler(cfg, s.views, s.metrics, &s.reloadMu))
	watcher, err := installViewsAutoReload(cfg, s.views, s.metrics, &s.reloadMu)
	if err != nil {
		return nil, fmt.Errorf("init views auto reload: %w", err)
	}
	s.onClose(watcher)

	format, err := logx.ResolveAccessLogFormat(cfg.Logging.AccessLogFormat, cfg.Logging.AccessLogFormatPreset)
	if err != nil {
		return nil, fmt.Errorf("resolve access log format: %w", err)
	}
	formatter, err := logx.CompileAccessLogFormat(format)
	if err != nil {
		return nil, fmt.Errorf("compile access_log_format: %w", err)
	}
	a, err := NewRouter(cfg, s.views, s.metrics, access.logger, access.color, formatter)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	log.Printf("renderd routes=%d engine=%s views_dir=%q", len(a.Routes().List()), cfg.Views.Engine, cfg.Views.Dir)
	return a, nil
}

func (s *server) serve(handler http.Handler) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("renderd listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("run: %w", err)
	case <-ctx.Done():
	}
	log.Printf("renderd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

// installReloadSignalHandler reloads the views on SIGHUP until closed.
func installReloadSignalHandler(cfg *config.Config, views viewEngine, m *renderMetrics, mu *sync.Mutex) io.Closer {
	if cfg == nil || views == nil || mu == nil {
		return nil
	}
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		for range ch {
			mu.Lock()
			_ = reloadViews(views, m, cfg.Views.Dir, "signal")
			mu.Unlock()
		}
	}()
	return closerFunc(func() error {
		signal.Stop(ch)
		close(ch)
		return nil
	})
}
