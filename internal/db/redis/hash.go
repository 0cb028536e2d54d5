package redis

import (
	"context"

	"github.com/kailas-cloud/questsearch/internal/db"
)

// HSet sets hash fields, creating the hash if needed.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	c, err := s.conn()
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	cmd := c.B().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := c.Do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	c, err := s.conn()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	count, err := c.Do(ctx, c.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return count > 0, nil
}
