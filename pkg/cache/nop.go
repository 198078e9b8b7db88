package cache

import (
	"context"
	"time"
)

// Nop never stores anything. It is used when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
