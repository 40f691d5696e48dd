package token

import "sync"

type lazy struct {
	once    sync.Once
	produce func() any
	value   any
}

// Lazy returns a token whose value is produced on first resolution and memoised afterwards.
// Use it for values that depend on configuration applied after the owning resource is
// declared.
func Lazy(produce func() any) Token {
	return &lazy{produce: produce}
}

// LazyStr is [Lazy] for string values.
func LazyStr(produce func() Str) Str {
	return AsStr(Lazy(func() any { return produce() }))
}

func (l *lazy) Resolve() (any, error) {
	l.once.Do(func() {
		l.value = l.produce()
	})
	return l.value, nil
}

func (l *lazy) String() string {
	return "Lazy"
}
