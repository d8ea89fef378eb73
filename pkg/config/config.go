package config

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EngineHTML   = "html"
	EnginePongo2 = "pongo2"

	defaultMetricsPath = "/metrics"

	defaultAccessLogRotateMaxSizeMB  = 100
	defaultAccessLogRotateMaxBackups = 14
	defaultAccessLogRotateMaxAgeDays = 14
)

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	enabledSet bool `yaml:"-"`
}

// UnmarshalYAML records whether enabled was given so it can default to true.
func (c *MetricsConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawMetrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	}
	var raw rawMetrics
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Enabled = raw.Enabled
	c.Path = raw.Path
	c.enabledSet = false

	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if strings.TrimSpace(value.Content[i].Value) == "enabled" {
			c.enabledSet = true
		}
	}
	return nil
}

// AccessLogRotateConfig rotates access_log_path by size and local day.
type AccessLogRotateConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`

	maxSizeMBSet  bool `yaml:"-"`
	maxBackupsSet bool `yaml:"-"`
	maxAgeDaysSet bool `yaml:"-"`
}

// UnmarshalYAML records which limits were given, so an explicit 0 reaches
// validation instead of being replaced by a default.
func (c *AccessLogRotateConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawRotate struct {
		Enabled    bool `yaml:"enabled"`
		MaxSizeMB  int  `yaml:"max_size_mb"`
		MaxBackups int  `yaml:"max_backups"`
		MaxAgeDays int  `yaml:"max_age_days"`
		Compress   bool `yaml:"compress"`
	}
	var raw rawRotate
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = AccessLogRotateConfig{
		Enabled:    raw.Enabled,
		MaxSizeMB:  raw.MaxSizeMB,
		MaxBackups: raw.MaxBackups,
		MaxAgeDays: raw.MaxAgeDays,
		Compress:   raw.Compress,
	}
	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		switch strings.TrimSpace(value.Content[i].Value) {
		case "max_size_mb":
			c.maxSizeMBSet = true
		case "max_backups":
			c.maxBackupsSet = true
		case "max_age_days":
			c.maxAgeDaysSet = true
		}
	}
	return nil
}

type LoggingConfig struct {
	Level                 string                `yaml:"level"`
	AccessLog             bool                  `yaml:"access_log"`
	AccessLogPath         string                `yaml:"access_log_path"`
	AccessLogFormat       string                `yaml:"access_log_format"`
	AccessLogFormatPreset string                `yaml:"access_log_format_preset"`
	AccessLogRotate       AccessLogRotateConfig `yaml:"access_log_rotate"`
}

// RouteConfig declares a view route served by renderd.
type RouteConfig struct {
	Method   string         `yaml:"method"`
	Path     string         `yaml:"path"`
	Template string         `yaml:"template"`
	Handler  string         `yaml:"handler"`
	Data     map[string]any `yaml:"data"`
}

type Config struct {
	Server struct {
		Listen         string `yaml:"listen"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		PidFile        string `yaml:"pid_file"`
	} `yaml:"server"`

	Views struct {
		Dir string `yaml:"dir"`
		// Engine is "html" (html/template) or "pongo2".
		Engine    string `yaml:"engine"`
		Extension string `yaml:"extension"`
		// Debug disables the pongo2 template cache so edits show up without a reload.
		Debug bool `yaml:"debug"`
		// Globals are exposed to every pongo2 template.
		Globals map[string]string `yaml:"globals"`
		// AutoReload watches views.dir and reloads templates at runtime.
		AutoReload struct {
			Enabled    bool `yaml:"enabled"`
			DebounceMs int  `yaml:"debounce_ms"`
		} `yaml:"auto_reload"`
		Routes []RouteConfig `yaml:"routes"`
	} `yaml:"views"`

	Interceptors struct {
		Footer struct {
			Enabled       bool   `yaml:"enabled"`
			HTML          string `yaml:"html"`
			HandlerSuffix string `yaml:"handler_suffix"`
		} `yaml:"footer"`
		FancyView struct {
			Enabled bool   `yaml:"enabled"`
			Header  string `yaml:"header"`
			Prefix  string `yaml:"prefix"`
		} `yaml:"fancy_view"`
		PreRender struct {
			Enabled bool   `yaml:"enabled"`
			Header  string `yaml:"header"`
			Prefix  string `yaml:"prefix"`
		} `yaml:"prerender"`
		Sanitize struct {
			Enabled bool   `yaml:"enabled"`
			Policy  string `yaml:"policy"`
		} `yaml:"sanitize"`
	} `yaml:"interceptors"`

	Metrics MetricsConfig `yaml:"metrics"`

	RequestID struct {
		Header string `yaml:"header"`
	} `yaml:"request_id"`

	Logging LoggingConfig `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a YAML document and applies defaults, env overrides and
// validation, in that order.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = ":3400"
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 60000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = 60000
	}
	if strings.TrimSpace(cfg.Server.PidFile) == "" {
		cfg.Server.PidFile = "/var/run/renderd.pid"
	}
	if strings.TrimSpace(cfg.Views.Dir) == "" {
		cfg.Views.Dir = "./views"
	}
	cfg.Views.Engine = strings.ToLower(strings.TrimSpace(cfg.Views.Engine))
	if cfg.Views.Engine == "" {
		cfg.Views.Engine = EngineHTML
	}
	if strings.TrimSpace(cfg.Views.Extension) == "" {
		cfg.Views.Extension = ".html"
	}
	if !strings.HasPrefix(cfg.Views.Extension, ".") {
		cfg.Views.Extension = "." + cfg.Views.Extension
	}
	if cfg.Views.AutoReload.DebounceMs <= 0 {
		cfg.Views.AutoReload.DebounceMs = 300
	}
	cfg.Views.Globals = normalizeStringMap(cfg.Views.Globals)
	for i := range cfg.Views.Routes {
		r := &cfg.Views.Routes[i]
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		if r.Method == "" {
			r.Method = "GET"
		}
	}

	if strings.TrimSpace(cfg.Interceptors.Footer.HandlerSuffix) == "" {
		cfg.Interceptors.Footer.HandlerSuffix = "Footer"
	}
	if strings.TrimSpace(cfg.Interceptors.FancyView.Header) == "" {
		cfg.Interceptors.FancyView.Header = "Use-Fancy-View"
	}
	if strings.TrimSpace(cfg.Interceptors.FancyView.Prefix) == "" {
		cfg.Interceptors.FancyView.Prefix = "fancy"
	}
	if strings.TrimSpace(cfg.Interceptors.PreRender.Header) == "" {
		cfg.Interceptors.PreRender.Header = "Use-Fancy-View"
	}
	if strings.TrimSpace(cfg.Interceptors.PreRender.Prefix) == "" {
		cfg.Interceptors.PreRender.Prefix = "fancy"
	}
	if strings.TrimSpace(cfg.Interceptors.Sanitize.Policy) == "" {
		cfg.Interceptors.Sanitize.Policy = "ugc"
	}

	// default true
	if !cfg.Metrics.enabledSet {
		cfg.Metrics.Enabled = true
	}
	if strings.TrimSpace(cfg.Metrics.Path) == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if strings.TrimSpace(cfg.RequestID.Header) == "" {
		cfg.RequestID.Header = "X-Request-Id"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	// default true for local debugging
	if !cfg.Logging.AccessLog {
		cfg.Logging.AccessLog = true
	}
	rotate := &cfg.Logging.AccessLogRotate
	if !rotate.maxSizeMBSet {
		rotate.MaxSizeMB = defaultAccessLogRotateMaxSizeMB
	}
	if !rotate.maxBackupsSet {
		rotate.MaxBackups = defaultAccessLogRotateMaxBackups
	}
	if !rotate.maxAgeDaysSet {
		rotate.MaxAgeDays = defaultAccessLogRotateMaxAgeDays
	}
}

func applyEnvOverrides(cfg *Config) {
	applyEnvServerOverrides(cfg)
	applyEnvViewsOverrides(cfg)
	applyGlobalsEnvOverrides(cfg)
	applyEnvInterceptorOverrides(cfg)
	applyEnvLoggingOverrides(cfg)
}

func applyEnvServerOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("RENDERD_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if n, ok := envInt("RENDERD_READ_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.ReadTimeoutMs = n
	}
	if n, ok := envInt("RENDERD_WRITE_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.WriteTimeoutMs = n
	}
	if v := strings.TrimSpace(os.Getenv("RENDERD_PID_FILE")); v != "" {
		cfg.Server.PidFile = v
	}
	cfg.Metrics.Enabled = envBool("RENDERD_METRICS_ENABLED", cfg.Metrics.Enabled)
	if v := strings.TrimSpace(os.Getenv("RENDERD_REQUEST_ID_HEADER")); v != "" {
		cfg.RequestID.Header = v
	}
}

func applyEnvViewsOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("RENDERD_VIEWS_DIR")); v != "" {
		cfg.Views.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("RENDERD_VIEWS_ENGINE")); v != "" {
		cfg.Views.Engine = strings.ToLower(v)
	}
	cfg.Views.Debug = envBool("RENDERD_VIEWS_DEBUG", cfg.Views.Debug)
	cfg.Views.AutoReload.Enabled = envBool("RENDERD_VIEWS_AUTO_RELOAD_ENABLED", cfg.Views.AutoReload.Enabled)
	if n, ok := envInt("RENDERD_VIEWS_AUTO_RELOAD_DEBOUNCE_MS"); ok {
		cfg.Views.AutoReload.DebounceMs = n
	}
}

func applyEnvInterceptorOverrides(cfg *Config) {
	cfg.Interceptors.Footer.Enabled = envBool("RENDERD_FOOTER_ENABLED", cfg.Interceptors.Footer.Enabled)
	if v := os.Getenv("RENDERD_FOOTER_HTML"); strings.TrimSpace(v) != "" {
		cfg.Interceptors.Footer.HTML = v
	}
	cfg.Interceptors.FancyView.Enabled = envBool("RENDERD_FANCY_VIEW_ENABLED", cfg.Interceptors.FancyView.Enabled)
	cfg.Interceptors.PreRender.Enabled = envBool("RENDERD_PRERENDER_ENABLED", cfg.Interceptors.PreRender.Enabled)
	cfg.Interceptors.Sanitize.Enabled = envBool("RENDERD_SANITIZE_ENABLED", cfg.Interceptors.Sanitize.Enabled)
	if v := strings.TrimSpace(os.Getenv("RENDERD_SANITIZE_POLICY")); v != "" {
		cfg.Interceptors.Sanitize.Policy = v
	}
}

func applyEnvLoggingOverrides(cfg *Config) {
	cfg.Logging.AccessLog = envBool("RENDERD_ACCESS_LOG", cfg.Logging.AccessLog)
	if v := strings.TrimSpace(os.Getenv("RENDERD_ACCESS_LOG_PATH")); v != "" {
		cfg.Logging.AccessLogPath = v
	}
	if v := os.Getenv("RENDERD_ACCESS_LOG_FORMAT"); strings.TrimSpace(v) != "" {
		cfg.Logging.AccessLogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("RENDERD_ACCESS_LOG_FORMAT_PRESET")); v != "" {
		cfg.Logging.AccessLogFormatPreset = v
	}
	rotate := &cfg.Logging.AccessLogRotate
	rotate.Enabled = envBool("RENDERD_ACCESS_LOG_ROTATE_ENABLED", rotate.Enabled)
	if n, ok := envInt("RENDERD_ACCESS_LOG_ROTATE_MAX_SIZE_MB"); ok {
		rotate.MaxSizeMB = n
	}
	if n, ok := envInt("RENDERD_ACCESS_LOG_ROTATE_MAX_BACKUPS"); ok {
		rotate.MaxBackups = n
	}
	if n, ok := envInt("RENDERD_ACCESS_LOG_ROTATE_MAX_AGE_DAYS"); ok {
		rotate.MaxAgeDays = n
	}
	rotate.Compress = envBool("RENDERD_ACCESS_LOG_ROTATE_COMPRESS", rotate.Compress)
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func validate(cfg *Config) error {
	switch cfg.Views.Engine {
	case EngineHTML, EnginePongo2:
	default:
		return errors.New("views.engine must be one of: html, pongo2")
	}
	if cfg.Views.AutoReload.Enabled && cfg.Views.AutoReload.DebounceMs <= 0 {
		return errors.New("views.auto_reload.debounce_ms must be > 0 when views.auto_reload.enabled=true")
	}
	for _, r := range cfg.Views.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return errors.New("views.routes[].path must start with /")
		}
		if strings.TrimSpace(r.Template) == "" {
			return errors.New("views.routes[].template is required")
		}
	}
	if cfg.Interceptors.Footer.Enabled && strings.TrimSpace(cfg.Interceptors.Footer.HTML) == "" {
		return errors.New("interceptors.footer.html is required when interceptors.footer.enabled=true")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Interceptors.Sanitize.Policy)) {
	case "ugc", "strict":
	default:
		return errors.New("interceptors.sanitize.policy must be one of: ugc, strict")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return validateAccessLogRotate(&cfg.Logging)
}

func validateAccessLogRotate(l *LoggingConfig) error {
	r := l.AccessLogRotate
	if r.Enabled {
		if !l.AccessLog {
			return errors.New("logging.access_log must be true when logging.access_log_rotate.enabled=true")
		}
		if strings.TrimSpace(l.AccessLogPath) == "" {
			return errors.New("logging.access_log_path is required when logging.access_log_rotate.enabled=true")
		}
	}
	if r.MaxSizeMB <= 0 {
		return errors.New("logging.access_log_rotate.max_size_mb must be > 0")
	}
	if r.MaxBackups <= 0 {
		return errors.New("logging.access_log_rotate.max_backups must be > 0")
	}
	if r.MaxAgeDays < 0 {
		return errors.New("logging.access_log_rotate.max_age_days must be >= 0")
	}
	return nil
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

var envGlobalPattern = regexp.MustCompile(`^RENDERD_GLOBAL_([A-Z0-9_]+)$`)

func applyGlobalsEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Views.Globals == nil {
		cfg.Views.Globals = map[string]string{}
	}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		k := strings.TrimSpace(parts[0])
		v := strings.TrimSpace(parts[1])
		m := envGlobalPattern.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(m[1]))
		if name == "" {
			continue
		}
		// Allow unsetting by providing empty string.
		if v == "" {
			delete(cfg.Views.Globals, name)
			continue
		}
		cfg.Views.Globals[name] = v
	}
}

func normalizeStringMap(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.ToLower(strings.TrimSpace(k))
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}
