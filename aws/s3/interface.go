//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

type BasicClient interface {
	Lister
	Getter
	Putter
	Deleter
}

type Lister interface {
	List(ctx context.Context, key string) (keys []string, err error)
}

type Getter interface {
	// Get returns ErrKeyNotFound if the given key doesn't exist.
	Get(ctx context.Context, key string) (data []byte, err error)
}

type Putter interface {
	Put(ctx context.Context, key string, data []byte) (err error)
}

type Deleter interface {
	Delete(ctx context.Context, key string) error
}
