// Package kvstore provides a JSON-encoded object store on top of valkey,
// shared by the repositories that keep expiring protocol state.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/identity-provider/internal/serviceerr"
)

type Store struct {
	valkey valkey.Client
	prefix string
}

func New(valkeyClient valkey.Client, prefix string) *Store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (s *Store) Get(ctx context.Context, objectType, objectID string, decodeInto any) error {
	key := s.key(objectType, objectID)
	return s.get(ctx, key, decodeInto)
}

// Set stores val under the given type and id. A positive ttl caps the
// lifetime of the entry; a zero or negative ttl stores it without expiry.
func (s *Store) Set(ctx context.Context, objectType, id string, val any, ttl time.Duration) error {
	key := s.key(objectType, id)
	bytes, err := s.encode(val)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}

	cmd := s.valkey.B().Set().Key(key).Value(valkey.BinaryString(bytes))
	if ttl > 0 {
		if err := s.valkey.Do(ctx, cmd.Ex(ttl).Build()).Error(); err != nil {
			return fmt.Errorf("executing set command: %w", err)
		}

		return nil
	}

	if err := s.valkey.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

// Take deletes the entry and reports whether it existed. The DEL
// count makes the removal a single-winner operation under concurrent
// callers.
func (s *Store) Take(ctx context.Context, objectType, id string) (bool, error) {
	key := s.key(objectType, id)
	removed, err := s.valkey.Do(ctx, s.valkey.B().Del().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("executing del command: %w", err)
	}

	return removed > 0, nil
}

func (s *Store) Destroy(ctx context.Context, objectType, id string) error {
	key := s.key(objectType, id)
	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (s *Store) get(ctx context.Context, key string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return errors.Join(valkeyErr, serviceerr.ErrNotFound)
		}

		return fmt.Errorf("executing get command: %w", err)
	}

	if err := s.decode(bytes, decodeInto); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}

	return nil
}

func (s *Store) key(objectType string, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, objectID)
}

func (s *Store) encode(v any) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}

	return bytes, nil
}

func (s *Store) decode(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}

// ScanObjects collects every stored object whose id matches the given
// pattern. The pattern follows valkey MATCH globbing.
func ScanObjects[T any](ctx context.Context, s *Store, objectType string, objectID string, decodeInto *[]T) error {
	key := s.key(objectType, objectID)
	var cursor uint64
	for {
		scan, err := s.valkey.Do(ctx, s.valkey.B().Scan().Cursor(cursor).Match(key).Count(100).Build()).AsScanEntry()
		if err != nil {
			return fmt.Errorf("executing scan command: %w", err)
		}

		cursor = scan.Cursor
		*decodeInto = slices.Grow(*decodeInto, len(scan.Elements))
		for _, key := range scan.Elements {
			var decoded T
			if err := s.get(ctx, key, &decoded); err != nil {
				if errors.Is(err, serviceerr.ErrNotFound) {
					continue
				}

				return fmt.Errorf("getting an element: %w", err)
			}

			*decodeInto = append(*decodeInto, decoded)
		}

		if cursor == 0 {
			return nil
		}
	}
}
