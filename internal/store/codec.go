package store

import (
	"context"
	"fmt"

	"sigchat/internal/domain"
	"sigchat/internal/domain/types"
)

// getRecord loads and decodes the record at key. A missing key is not an error.
func getRecord[T any](ctx context.Context, kv domain.KeyValueStore, key string) (T, bool, error) {
	var zero T
	b, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := types.Decode[T](b)
	if err != nil {
		return zero, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// putRecord encodes v and writes it with a single Set.
func putRecord(ctx context.Context, kv domain.KeyValueStore, key string, v any) error {
	b, err := types.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, b)
}

// listKeys enumerates keys under prefix if the backend supports it.
func listKeys(ctx context.Context, kv domain.KeyValueStore, prefix string) ([]string, error) {
	l, ok := kv.(domain.KeyLister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return l.Keys(ctx, prefix)
}
