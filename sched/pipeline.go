package sched

// Stage is the shape every pipeline stage combinator produces: take a
// source Result and the lifetime it should run under, and produce the
// next Result in the chain.
type Stage[R, E, R2, E2 any] func(Result[R, E], *Lifetime) Result[R2, E2]

// Pipeline wraps a deferred computation that, given a lifetime, produces a
// terminal Result. Because Go methods cannot introduce new type
// parameters, chaining stages of different result/error types is exposed
// as the free function Then rather than a Pipeline.Then method.
type Pipeline[R, E any] struct {
	run func(*Lifetime) Result[R, E]
}

// NewPipeline starts a pipeline from a source-producing thunk.
func NewPipeline[R, E any](source func(*Lifetime) Result[R, E]) Pipeline[R, E] {
	return Pipeline[R, E]{run: source}
}

// FromResult starts a pipeline from an already-built Result.
func FromResult[R, E any](r Result[R, E]) Pipeline[R, E] {
	return Pipeline[R, E]{run: func(*Lifetime) Result[R, E] { return r }}
}

// Run executes the pipeline under lifetime (defaulting to Global).
func (p Pipeline[R, E]) Run(lifetime *Lifetime) Result[R, E] {
	if lifetime == nil {
		lifetime = Global
	}
	return p.run(lifetime)
}

// Then appends stage to p, producing a pipeline over the stage's output
// types.
func Then[R, E, R2, E2 any](p Pipeline[R, E], stage Stage[R, E, R2, E2]) Pipeline[R2, E2] {
	return Pipeline[R2, E2]{
		run: func(lifetime *Lifetime) Result[R2, E2] {
			return stage(p.run(lifetime), lifetime)
		},
	}
}

// Map transforms a Ready result's value, passing Failed/Cancelled through
// unchanged. transform cannot itself fail -- see MapResult for the fallible
// case.
func Map[R, E, R2 any](transform func(R) R2) Stage[R, E, R2, E] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R2, E] {
		supplier := NewSupplier[R2, E]()
		src.Notify(func(result Result[R, E]) {
			switch result.State() {
			case Ready:
				supplier.SetResult(transform(result.GetResult()))
			case Failed:
				supplier.SetError(result.GetError())
			case Cancelled:
				supplier.Cancel()
			}
		}, lifetime)
		return supplier.Result()
	}
}

// MapResult is the common case where errors are represented by Go's error
// type: transform returns (R2, error); a non-nil error fails the stage
// instead of requiring the zero-value comparison Map needs for a generic E.
func MapResult[R, R2 any](transform func(R) (R2, error)) Stage[R, error, R2, error] {
	return func(src Result[R, error], lifetime *Lifetime) Result[R2, error] {
		supplier := NewSupplier[R2, error]()
		src.Notify(func(result Result[R, error]) {
			switch result.State() {
			case Ready:
				v, err := transform(result.GetResult())
				if err != nil {
					supplier.SetError(err)
				} else {
					supplier.SetResult(v)
				}
			case Failed:
				supplier.SetError(result.GetError())
			case Cancelled:
				supplier.Cancel()
			}
		}, lifetime)
		return supplier.Result()
	}
}

// MapError transforms a Failed result's error, passing Ready/Cancelled
// through unchanged.
func MapError[R, E, E2 any](transform func(E) E2) Stage[R, E, R, E2] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R, E2] {
		supplier := NewSupplier[R, E2]()
		src.Notify(func(result Result[R, E]) {
			switch result.State() {
			case Ready:
				supplier.SetResult(result.GetResult())
			case Failed:
				supplier.SetError(transform(result.GetError()))
			case Cancelled:
				supplier.Cancel()
			}
		}, lifetime)
		return supplier.Result()
	}
}

// MapCancelled substitutes a value for a Cancelled result, passing
// Ready/Failed through unchanged.
func MapCancelled[R, E any](generate func() (R, error), wrapErr func(error) E) Stage[R, E, R, E] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R, E] {
		supplier := NewSupplier[R, E]()
		src.Notify(func(result Result[R, E]) {
			switch result.State() {
			case Ready:
				supplier.SetResult(result.GetResult())
			case Failed:
				supplier.SetError(result.GetError())
			case Cancelled:
				v, err := generate()
				if err != nil {
					supplier.SetError(wrapErr(err))
				} else {
					supplier.SetResult(v)
				}
			}
		}, lifetime)
		return supplier.Result()
	}
}

// Catch substitutes a recovered value for a Failed result, passing
// Ready/Cancelled through unchanged.
func Catch[R any](catcher func(error) (R, error)) Stage[R, error, R, error] {
	return func(src Result[R, error], lifetime *Lifetime) Result[R, error] {
		supplier := NewSupplier[R, error]()
		src.Notify(func(result Result[R, error]) {
			switch result.State() {
			case Ready:
				supplier.SetResult(result.GetResult())
			case Failed:
				v, err := catcher(result.GetError())
				if err != nil {
					supplier.SetError(err)
				} else {
					supplier.SetResult(v)
				}
			case Cancelled:
				supplier.Cancel()
			}
		}, lifetime)
		return supplier.Result()
	}
}

// Async runs stage against the source's eventual value on whatever
// goroutine delivers it, flattening the Result-of-Result it would
// otherwise produce.
func Async[R, E, R2, E2 any](stage Stage[R, E, R2, E2]) Stage[R, E, R2, E2] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R2, E2] {
		supplier := NewSupplier[R2, E2]()
		src.Notify(func(result Result[R, E]) {
			stageResult := stage(FromResult(result).Run(lifetime), lifetime)
			stageResult.Notify(func(sr Result[R2, E2]) {
				switch sr.State() {
				case Ready:
					supplier.SetResult(sr.GetResult())
				case Failed:
					supplier.SetError(sr.GetError())
				case Cancelled:
					supplier.Cancel()
				}
			}, lifetime)
		}, lifetime)
		return supplier.Result()
	}
}

// Scan observes a Ready value without altering the pipeline.
func Scan[R, E any](observe func(R)) Stage[R, E, R, E] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R, E] {
		src.Notify(func(result Result[R, E]) {
			if result.State() == Ready {
				observe(result.GetResult())
			}
		}, lifetime)
		return src
	}
}

// ScanErrors observes a Failed error without altering the pipeline.
func ScanErrors[R, E any](observe func(E)) Stage[R, E, R, E] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R, E] {
		src.Notify(func(result Result[R, E]) {
			if result.State() == Failed {
				observe(result.GetError())
			}
		}, lifetime)
		return src
	}
}

// ScanCancelled observes a Cancelled outcome without altering the
// pipeline.
func ScanCancelled[R, E any](observe func()) Stage[R, E, R, E] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R, E] {
		src.Notify(func(result Result[R, E]) {
			if result.State() == Cancelled {
				observe()
			}
		}, lifetime)
		return src
	}
}

// Finally observes every settled state without altering the pipeline.
func Finally[R, E any](observe func(Result[R, E])) Stage[R, E, R, E] {
	return func(src Result[R, E], lifetime *Lifetime) Result[R, E] {
		src.Notify(observe, lifetime)
		return src
	}
}

// Pass is the identity stage.
func Pass[R, E any]() Stage[R, E, R, E] {
	return func(src Result[R, E], _ *Lifetime) Result[R, E] { return src }
}
