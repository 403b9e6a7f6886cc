package domain

// Interceptor inspects or rewrites a message of type K before it is
// persisted. A non-nil error rejects the message.
type Interceptor[K any] interface {
	Apply(msg *K) error
}

// Interceptors applies a list of interceptors in order.
type Interceptors[K any] struct {
	Interceptors []Interceptor[K]
}

// Apply runs every interceptor on msg and stops at the first error.
func (i *Interceptors[K]) Apply(msg *K) error {
	for _, interceptor := range i.Interceptors {
		if err := interceptor.Apply(msg); err != nil {
			return err
		}
	}

	return nil
}

// WithInterceptors builds a chain. Nil entries are skipped, so optional
// interceptors can be passed unconditionally:
//
//	chain := WithInterceptors[InboundMessage](
//	    validator,
//	    rateLimiterOrNil,
//	)
func WithInterceptors[K any](interceptors ...Interceptor[K]) *Interceptors[K] {
	chain := &Interceptors[K]{}
	for _, interceptor := range interceptors {
		if interceptor != nil {
			chain.Interceptors = append(chain.Interceptors, interceptor)
		}
	}
	return chain
}
