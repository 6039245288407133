package resource

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"
)

// copier deep-copies values of T so callers never share memory with a
// cache. Types deepcopy cannot handle, such as channels, are detected once
// up front and then shared as they are.
type copier[T any] struct {
	err    error
	logger *zap.Logger
}

func newCopier[T any](logger *zap.Logger) copier[T] {
	var zero T
	c := copier[T]{logger: logger}
	if err := deepcopy.Copy(&zero, &zero); err != nil {
		c.err = err
		logger.Warn("item type cannot be deep copied, snapshots will share memory with the cache",
			zap.String("type", fmt.Sprintf("%T", zero)),
			zap.Error(err),
		)
	}
	return c
}

func (c copier[T]) clone(v T) T {
	if c.err != nil {
		return v
	}
	var out T
	if err := deepcopy.Copy(&out, &v); err != nil {
		c.logger.Warn("deep copy failed, returning a shallow copy", zap.Error(err))
		return v
	}
	return out
}
