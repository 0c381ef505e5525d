package store

import (
	"context"
	"errors"
)

// Multi saves to every sink in order and reports all failures.
type Multi []Sink

func (m Multi) Save(ctx context.Context, r *Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
