package logx

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// archiveLayout suffixes rotated files: access.log.20260201-120000.000000001.
const archiveLayout = "20060102-150405.000000000"

type AccessLogRotateOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	// MaxAgeDays of 0 keeps archives regardless of age.
	MaxAgeDays int
	Compress   bool
	Now        func() time.Time
}

// AccessRotateWriter is an io.WriteCloser over a single access log file. It
// moves the active file aside when the local day changes or the next write
// would cross the size limit, then prunes old archives.
type AccessRotateWriter struct {
	mu sync.Mutex

	opts    AccessLogRotateOptions
	dir     string
	maxSize int64

	f    *os.File
	size int64
	day  string
	done bool
}

type archive struct {
	path string
	at   time.Time
}

func NewAccessRotateWriter(opts AccessLogRotateOptions) (*AccessRotateWriter, error) {
	opts.Path = strings.TrimSpace(opts.Path)
	switch {
	case opts.Path == "":
		return nil, errors.New("access log rotate: path is empty")
	case opts.MaxSizeMB <= 0:
		return nil, errors.New("access log rotate: max_size_mb must be > 0")
	case opts.MaxBackups <= 0:
		return nil, errors.New("access log rotate: max_backups must be > 0")
	case opts.MaxAgeDays < 0:
		return nil, errors.New("access log rotate: max_age_days must be >= 0")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	dir := filepath.Dir(opts.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	w := &AccessRotateWriter{
		opts:    opts,
		dir:     dir,
		maxSize: int64(opts.MaxSizeMB) << 20,
	}
	if err := w.openLocked(opts.Now()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *AccessRotateWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return 0, os.ErrClosed
	}
	now := w.opts.Now()
	overflow := w.size > 0 && w.size+int64(len(p)) > w.maxSize
	if overflow || localDay(now) != w.day {
		if err := w.rotateLocked(now); err != nil {
			return 0, err
		}
	}
	if w.f == nil {
		return 0, errors.New("access log rotate: no active file")
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *AccessRotateWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return nil
	}
	w.done = true
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *AccessRotateWriter) openLocked(now time.Time) error {
	// #nosec G304 -- access_log_path comes from trusted config/env.
	f, err := os.OpenFile(w.opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.size, w.day = f, st.Size(), localDay(now)
	return nil
}

func (w *AccessRotateWriter) rotateLocked(now time.Time) error {
	if w.f != nil {
		if err := w.f.Close(); err != nil {
			return err
		}
		w.f = nil
	}

	target := fmt.Sprintf("%s.%s", w.opts.Path, now.In(time.Local).Format(archiveLayout))
	renameErr := os.Rename(w.opts.Path, target)
	if renameErr != nil && errors.Is(renameErr, os.ErrNotExist) {
		renameErr = nil
		target = ""
	}
	if err := w.openLocked(now); err != nil {
		return err
	}
	if renameErr != nil {
		return renameErr
	}
	if target != "" && w.opts.Compress {
		if err := gzipFile(target); err != nil {
			return err
		}
	}
	w.pruneLocked(now)
	return nil
}

// pruneLocked keeps the newest MaxBackups archives and drops any older than
// MaxAgeDays. Removal failures are ignored; the next rotation retries.
func (w *AccessRotateWriter) pruneLocked(now time.Time) {
	archives, err := w.archivesLocked()
	if err != nil {
		return
	}
	var cutoff time.Time
	if w.opts.MaxAgeDays > 0 {
		cutoff = now.AddDate(0, 0, -w.opts.MaxAgeDays)
	}
	for i, a := range archives {
		if i >= w.opts.MaxBackups || (!cutoff.IsZero() && a.at.Before(cutoff)) {
			_ = os.Remove(a.path)
		}
	}
}

// archivesLocked lists rotated files newest first.
func (w *AccessRotateWriter) archivesLocked() ([]archive, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(w.opts.Path) + "."
	var out []archive
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasPrefix(ent.Name(), prefix) {
			continue
		}
		at, ok := archiveTime(ent.Name(), prefix)
		if !ok {
			continue
		}
		out = append(out, archive{path: filepath.Join(w.dir, ent.Name()), at: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at.After(out[j].at) })
	return out, nil
}

func archiveTime(name, prefix string) (time.Time, bool) {
	ts := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".gz")
	at, err := time.ParseInLocation(archiveLayout, ts, time.Local)
	return at, err == nil
}

// gzipFile replaces path with path.gz.
func gzipFile(path string) (err error) {
	// #nosec G304 -- archive path is derived from access_log_path.
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	tmp := path + ".gz.tmp"
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	zw := gzip.NewWriter(dst)
	_, err = io.Copy(zw, src)
	err = errors.Join(err, zw.Close(), dst.Close())
	if err != nil {
		return err
	}
	if err = os.Rename(tmp, path+".gz"); err != nil {
		return err
	}
	return os.Remove(path)
}

func localDay(t time.Time) string {
	return t.In(time.Local).Format("20060102")
}
