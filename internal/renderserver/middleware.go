package renderserver

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/internal/logx"
	"github.com/r9s-ai/render-interceptor/pkg/requestid"
)

// renderLogFields maps the keys set by dispatchObserver to access-log names.
var renderLogFields = []struct {
	ctxKey string
	logKey string
}{
	{ctxKeyTemplate, "template"},
	{ctxKeyFinalTemplate, "final_template"},
	{ctxKeyStrategy, "render_strategy"},
	{ctxKeyTemplateInterceptors, "template_interceptors"},
	{ctxKeyRenderInterceptors, "render_interceptors"},
	{ctxKeyRenderMs, "render_ms"},
	{ctxKeyRenderError, "render_error"},
}

// requestLoggerWithColor writes one access line per request after the rest
// of the chain ran, so render fields are available.
func requestLoggerWithColor(l *log.Logger, color bool, requestIDHeaderKey string, formatter *logx.AccessLogFormatter) gin.HandlerFunc {
	requestIDHeaderKey = requestid.ResolveHeaderKey(requestIDHeaderKey)
	if l == nil {
		l = log.New(os.Stdout, "", log.LstdFlags)
	}
	format := logx.FormatLine
	if formatter != nil {
		format = formatter.Format
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Println(format(accessEntry(c, requestIDHeaderKey, start), color))
	}
}

func accessEntry(c *gin.Context, requestIDHeaderKey string, start time.Time) logx.Entry {
	fields := make(map[string]any, len(renderLogFields)+1)
	if id := strings.TrimSpace(c.GetString(requestIDHeaderKey)); id != "" {
		fields["request_id"] = id
	}
	for _, f := range renderLogFields {
		if v, ok := c.Get(f.ctxKey); ok {
			fields[f.logKey] = v
		}
	}
	return logx.Entry{
		Time:     time.Now(),
		Status:   c.Writer.Status(),
		Latency:  time.Since(start),
		ClientIP: c.ClientIP(),
		Method:   c.Request.Method,
		Path:     c.Request.URL.Path,
		Fields:   fields,
	}
}
