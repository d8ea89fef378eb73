package renderadapter

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipRenderNotString is matched by every SkipRenderNotStringError.
	ErrSkipRenderNotString = errors.New("skip-render payload must be a string")
	// ErrNoViewEngine is returned when the engine has no HTML renderer loaded.
	ErrNoViewEngine = errors.New("renderadapter: no view engine configured")
)

// SkipRenderNotStringError reports a skip-render response whose payload is not
// pre-rendered HTML.
type SkipRenderNotStringError struct {
	// Type is the dynamic type of the rejected payload.
	Type string
}

func (e *SkipRenderNotStringError) Error() string {
	return fmt.Sprintf("%s (got %s)", ErrSkipRenderNotString.Error(), e.Type)
}

func (e *SkipRenderNotStringError) Is(target error) bool {
	return target == ErrSkipRenderNotString
}
