package store

import (
	"context"
	"errors"

	"github.com/Sternrassler/vk-watch/pkg/profile"
)

// Persister stores one merged record under its local id.
type Persister interface {
	Persist(ctx context.Context, localID int64, rec profile.EnrichedRecord) error
}

// FanoutPersister hands every record to each of its persisters in order.
type FanoutPersister struct {
	persisters []Persister
}

// Fanout combines persisters; nil entries are skipped.
func Fanout(persisters ...Persister) *FanoutPersister {
	f := &FanoutPersister{}
	for _, p := range persisters {
		if p != nil {
			f.persisters = append(f.persisters, p)
		}
	}
	return f
}

// Persist calls every persister even if an earlier one fails and joins the errors.
func (f *FanoutPersister) Persist(ctx context.Context, localID int64, rec profile.EnrichedRecord) error {
	var errs []error
	for _, p := range f.persisters {
		if err := p.Persist(ctx, localID, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
