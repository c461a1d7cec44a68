package storage

import (
	"context"
	"errors"
)

// Source loads the raw bytes of a static table, such as the menu catalog.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// StaticSource is an in-memory Source, used for embedded tables and in tests.
type StaticSource struct {
	data []byte
	err  error
}

func NewStaticSource(data []byte) *StaticSource {
	return &StaticSource{data: data}
}

func NewStaticSourceWithError() *StaticSource {
	return &StaticSource{err: errors.New("not found")}
}

func (s *StaticSource) Load(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}
