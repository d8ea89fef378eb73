// Package interception threads a value through an ordered chain of interceptors.
//
// The chain is an onion: position 0 is outermost and the seed is the innermost
// value. Each interceptor receives a Handler for the rest of the chain and
// returns a Stream. Calling Handle resolves the next position; an interceptor
// that never calls it short-circuits everything behind it.
//
// A Stream may emit several successive values. Only the last value emitted
// before the stream completes is forwarded to the caller of Intercept.
//
//	footer := interception.InterceptorFunc(func(ctx context.Context, next interception.Handler) (interception.Stream, error) {
//		return interception.Map(next.Handle(), func(html string) string {
//			return strings.Replace(html, "</body>", "<footer>hi</footer></body>", 1)
//		}), nil
//	})
//	out, err := interception.Intercept(ctx, "<body>x</body>", []interception.Interceptor{footer})
package interception
