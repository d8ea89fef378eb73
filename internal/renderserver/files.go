package renderserver

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/r9s-ai/render-interceptor/internal/logx"
	"github.com/r9s-ai/render-interceptor/pkg/config"
)

type accessLog struct {
	logger *log.Logger
	closer io.Closer
	color  bool
}

// openAccessLog returns a zero accessLog when access logging is off. Stdout
// is colored when it is a terminal; files never are. With rotation enabled
// the closer is the *logx.AccessRotateWriter itself.
func openAccessLog(cfg *config.Config) (accessLog, error) {
	if cfg == nil || !cfg.Logging.AccessLog {
		return accessLog{}, nil
	}
	path := strings.TrimSpace(cfg.Logging.AccessLogPath)
	if rotate := cfg.Logging.AccessLogRotate; rotate.Enabled {
		w, err := logx.NewAccessRotateWriter(logx.AccessLogRotateOptions{
			Path:       path,
			MaxSizeMB:  rotate.MaxSizeMB,
			MaxBackups: rotate.MaxBackups,
			MaxAgeDays: rotate.MaxAgeDays,
			Compress:   rotate.Compress,
		})
		if err != nil {
			return accessLog{}, err
		}
		return accessLog{logger: log.New(w, "", log.LstdFlags), closer: w}, nil
	}
	if path == "" {
		return accessLog{logger: log.New(os.Stdout, "", log.LstdFlags), color: logx.ColorEnabled()}, nil
	}
	if err := ensureParentDir(path); err != nil {
		return accessLog{}, err
	}
	// #nosec G304 -- access_log_path comes from trusted config/env.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return accessLog{}, err
	}
	return accessLog{logger: log.New(f, "", log.LstdFlags), closer: f}, nil
}

// writePIDFile writes the pid atomically; closing removes the file.
func writePIDFile(cfg *config.Config) (io.Closer, error) {
	if cfg == nil {
		return nil, nil
	}
	path := strings.TrimSpace(cfg.Server.PidFile)
	if path == "" {
		return nil, nil
	}
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	tmp := path + ".tmp"
	// #nosec G304 -- pid_file comes from trusted config/env.
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	return closerFunc(func() error { return os.Remove(path) }), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || strings.TrimSpace(dir) == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}
