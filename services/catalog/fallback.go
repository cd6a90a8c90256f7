package catalog

// firstValid evaluates extractors lazily in priority order and returns the
// first value that valid accepts. It replaces the scattered
// "try this field, fall back to that one" chains in the merge logic.
func firstValid[T any](valid func(T) bool, extractors ...func() T) (T, bool) {
	for _, extract := range extractors {
		if v := extract(); valid(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// firstNonEmpty is the common string case of firstValid.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func notNil[T any](p *T) bool { return p != nil }

func lazy[T any](v T) func() T {
	return func() T { return v }
}
