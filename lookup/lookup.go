// Package lookup builds in-memory lookup tables of fixed sensor metadata,
// keyed by sensor name. Fixed metadata describes the permanent properties of
// a sensor installation (manufacturer, optics, mounting) that the gantry does
// not record with each capture; the metadata cleaner folds it in to cleaned
// documents when a source is configured.
package lookup

import (
	"context"
	"sync"
)

// LookerUpper appends fixed metadata documents from some storage source to a
// lookup map.
type LookerUpper interface {
	Open(context.Context, string) error
	Append(context.Context, *sync.Map, ...AppendLookupFunc) error
}

// NewLookupMap populates a sync.Map instance from one or more LookerUpper
// instances, each filtered through append_funcs.
func NewLookupMap(ctx context.Context, looker_uppers []LookerUpper, append_funcs []AppendLookupFunc) (*sync.Map, error) {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lu := new(sync.Map)

	done_ch := make(chan bool)
	err_ch := make(chan error)

	remaining := len(looker_uppers)

	for _, l := range looker_uppers {

		go func(l LookerUpper) {

			err := l.Append(ctx, lu, append_funcs...)

			if err != nil {
				err_ch <- err
			}

			done_ch <- true

		}(l)
	}

	for remaining > 0 {
		select {
		case <-done_ch:
			remaining -= 1
		case err := <-err_ch:
			return nil, err
		default:
			// pass
		}
	}

	return lu, nil
}
