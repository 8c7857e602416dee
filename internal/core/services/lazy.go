package services

import (
	"errors"
	"sync"
)

var errNotConfigured = errors.New("not configured")

// lazy builds a value on first use, exactly once. A failed build is not
// retried: the error is returned to every caller until the process restarts.
type lazy[T any] struct {
	once  sync.Once
	build func() (T, error)
	val   T
	err   error
}

func newLazy[T any](build func() (T, error)) *lazy[T] {
	return &lazy[T]{build: build}
}

func (l *lazy[T]) get() (T, error) {
	l.once.Do(func() {
		if l.build == nil {
			l.err = errNotConfigured
			return
		}
		l.val, l.err = l.build()
	})
	return l.val, l.err
}
