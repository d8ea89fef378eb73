package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/render-interceptor/internal/renderserver"
	"github.com/r9s-ai/render-interceptor/internal/version"
	"github.com/r9s-ai/render-interceptor/pkg/config"
)

const defaultConfigPath = "renderd.yaml"

type rootOptions struct {
	cfgPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "renderd",
		Short:         "Serve views through render interceptors",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderserver.Run(opts.cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", defaultConfigPath, "path to config yaml")

	root.AddCommand(
		newServeCmd(opts),
		newVersionCmd(),
		newCheckCmd(opts),
		newRenderCmd(opts),
		newReloadCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderserver.Run(opts.cfgPath)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get())
			return err
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate config and render every configured route once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			report, err := renderserver.CheckRoutes(cfg)
			if err != nil {
				return fmt.Errorf("load views dir %q: %w", cfg.Views.Dir, err)
			}
			printChecks(cmd.OutOrStdout(), cfg, report)
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d routes failed to render", failed, len(report.Routes))
			}
			return nil
		},
	}
}

func printChecks(out io.Writer, cfg *config.Config, report renderserver.CheckReport) {
	r := lipgloss.NewRenderer(out)
	title := r.NewStyle().Bold(true)
	okStyle := r.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle := r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dim := r.NewStyle().Faint(true)

	_, _ = fmt.Fprintln(out, title.Render(fmt.Sprintf("views %s (engine=%s)", cfg.Views.Dir, cfg.Views.Engine)))
	if report.RenderToString {
		_, _ = fmt.Fprintln(out, dim.Render("render-to-string: available, render interceptors apply"))
	} else {
		_, _ = fmt.Fprintln(out, failStyle.Render("render-to-string: unavailable, views render natively"))
	}
	for _, c := range report.Routes {
		line := fmt.Sprintf("%-7s %-30s %s", c.Route.Method, c.Route.Path, c.Route.Template)
		if c.Err != nil {
			_, _ = fmt.Fprintf(out, "%s %s %s\n", failStyle.Render("FAIL"), line, dim.Render(c.Err.Error()))
			continue
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", okStyle.Render("ok  "), line)
	}
}

type renderFlags struct {
	handler string
	data    string
	headers []string
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render one template through the configured interceptors and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			req, err := f.request(args[0])
			if err != nil {
				return err
			}
			res, err := renderserver.RenderOnce(cfg, req)
			if err != nil {
				return fmt.Errorf("render %s: %w", args[0], err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), res.Body)
			return err
		},
	}
	cmd.Flags().StringVar(&f.handler, "handler", "", "handler name interceptors see, e.g. HomeFooter")
	cmd.Flags().StringVar(&f.data, "data", "", "template data as a JSON object")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "request header \"Name: value\" (repeatable)")
	return cmd
}

func (f *renderFlags) request(template string) (renderserver.RenderRequest, error) {
	req := renderserver.RenderRequest{
		Template: template,
		Handler:  strings.TrimSpace(f.handler),
		Header:   http.Header{},
	}
	if s := strings.TrimSpace(f.data); s != "" {
		if err := json.Unmarshal([]byte(s), &req.Data); err != nil {
			return req, fmt.Errorf("parse --data: %w", err)
		}
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return req, fmt.Errorf("invalid --header %q (want \"Name: value\")", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return req, nil
}

func newReloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask a running renderd to reload its views (SIGHUP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendReloadSignal(opts.cfgPath)
		},
	}
}

func sendReloadSignal(cfgPath string) error {
	pidFile, err := pidFileFromConfig(cfgPath)
	if err != nil {
		return err
	}
	// #nosec G304 -- pid file path comes from trusted config/env.
	b, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("read pid file %q: %w", pidFile, err)
	}
	pidStr := strings.TrimSpace(string(b))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return fmt.Errorf("invalid pid in %q: %q", pidFile, pidStr)
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process pid=%d: %w", pid, err)
	}
	if err := p.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("send SIGHUP pid=%d: %w", pid, err)
	}
	return nil
}

func pidFileFromConfig(cfgPath string) (string, error) {
	// Default must match pkg/config defaults.
	const def = "/var/run/renderd.pid"
	if v := strings.TrimSpace(os.Getenv("RENDERD_PID_FILE")); v != "" {
		return v, nil
	}
	path := strings.TrimSpace(cfgPath)
	if path == "" {
		return def, nil
	}
	// #nosec G304 -- config path comes from trusted flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config %q: %w", path, err)
	}
	var partial struct {
		Server struct {
			PidFile string `yaml:"pid_file"`
		} `yaml:"server"`
	}
	if err := yaml.Unmarshal(b, &partial); err != nil {
		return "", fmt.Errorf("parse config %q: %w", path, err)
	}
	if v := strings.TrimSpace(partial.Server.PidFile); v != "" {
		return v, nil
	}
	return def, nil
}
