package renderserver

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r9s-ai/render-interceptor/internal/logx"
)

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "renderd.pid")
	cfg := parseConfig(t, "server:\n  pid_file: \""+path+"\"\n")

	closer, err := writePIDFile(cfg)
	require.NoError(t, err)
	require.NotNil(t, closer)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(b)))
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp pid file removed, err=%v", err)
	}

	require.NoError(t, closer.Close())
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, err=%v", err)
	}
}

func TestOpenAccessLog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "access.log")
	cfg := parseConfig(t, "logging:\n  access_log_path: \""+path+"\"\n")

	al, err := openAccessLog(cfg)
	require.NoError(t, err)
	require.NotNil(t, al.closer)
	if al.color {
		t.Fatalf("file access log must not be colored")
	}
	al.logger.Println("hello")
	require.NoError(t, al.closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "hello")
}

func TestOpenAccessLog_RotateEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	cfg := parseConfig(t, "logging:\n  access_log_path: \""+path+"\"\n  access_log_rotate:\n    enabled: true\n    max_size_mb: 1\n    max_backups: 2\n")

	al, err := openAccessLog(cfg)
	require.NoError(t, err)
	require.NotNil(t, al.logger)
	if al.color {
		t.Fatalf("rotated access log must not be colored")
	}
	if _, ok := al.closer.(*logx.AccessRotateWriter); !ok {
		t.Fatalf("expected *logx.AccessRotateWriter closer, got %T", al.closer)
	}
	al.logger.Println("hello")
	require.NoError(t, al.closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "hello")
}

func TestOpenAccessLog_RotateDisabledAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0o600))
	cfg := parseConfig(t, "logging:\n  access_log_path: \""+path+"\"\n")

	al, err := openAccessLog(cfg)
	require.NoError(t, err)
	if _, ok := al.closer.(*os.File); !ok {
		t.Fatalf("expected *os.File closer, got %T", al.closer)
	}
	al.logger.Println("hello")
	require.NoError(t, al.closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "earlier\n"))
	require.Contains(t, string(b), "hello")
}

func TestOpenAccessLog_RotateEnabledEmptyPath(t *testing.T) {
	cfg := parseConfig(t, "")
	cfg.Logging.AccessLogRotate.Enabled = true

	_, err := openAccessLog(cfg)
	require.Error(t, err)
}

func TestOpenAccessLog_Disabled(t *testing.T) {
	t.Setenv("RENDERD_ACCESS_LOG", "false")
	cfg := parseConfig(t, "")
	al, err := openAccessLog(cfg)
	require.NoError(t, err)
	if al.logger != nil || al.closer != nil {
		t.Fatalf("expected no logger when access_log is disabled")
	}
}

func TestServerClosesInReverseOrder(t *testing.T) {
	var order []int
	s := &server{}
	for i := 1; i <= 3; i++ {
		s.onClose(closerFunc(func() error {
			order = append(order, i)
			return nil
		}))
	}
	s.onClose(nil)
	s.close()
	require.Equal(t, []int{3, 2, 1}, order)
}
