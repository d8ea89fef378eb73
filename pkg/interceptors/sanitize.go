package interceptors

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
)

const (
	PolicyUGC    = "ugc"
	PolicyStrict = "strict"
)

// Sanitize is a render interceptor that cleans the body of the rendered
// document with a bluemonday policy. The document shell outside <body> is
// kept as rendered.
type Sanitize struct {
	policy *bluemonday.Policy
}

func NewSanitize(policy string) (*Sanitize, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyUGC:
		return &Sanitize{policy: bluemonday.UGCPolicy()}, nil
	case PolicyStrict:
		return &Sanitize{policy: bluemonday.StrictPolicy()}, nil
	default:
		return nil, fmt.Errorf("interceptors: unknown sanitize policy %q", policy)
	}
}

func (s *Sanitize) RenderIntercept(_ context.Context, next interception.Handler) (interception.Stream, error) {
	return interception.Map(next.Handle(), s.Clean), nil
}

// Clean sanitizes the body content of doc, or all of doc if it has no body.
func (s *Sanitize) Clean(doc string) string {
	start, end := bodyBounds(doc)
	if start < 0 || end < start {
		return s.policy.Sanitize(doc)
	}
	return doc[:start] + s.policy.Sanitize(doc[start:end]) + doc[end:]
}
