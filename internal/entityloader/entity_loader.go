package entityloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/iblockql/internal/domain"
)

// ElementLister is the list operation the loader batches onto.
type ElementLister interface {
	List(ctx context.Context, containerCode string, query domain.Query, loadProps bool) (*domain.Collection, error)
}

// ElementKey identifies one element lookup.
type ElementKey struct {
	Container string
	ID        int64
	LoadProps bool
}

// String implements dataloader.Key.
func (k ElementKey) String() string {
	return k.Container + "|" + strconv.FormatBool(k.LoadProps) + "|" + strconv.FormatInt(k.ID, 10)
}

// Raw implements dataloader.Key.
func (k ElementKey) Raw() interface{} {
	return k
}

type batchGroup struct {
	container string
	loadProps bool
}

// ElementLoader batches single-element lookups made within the wait window
// into one list call per container.
type ElementLoader struct {
	Loader *dataloader.Loader
}

// NewElementLoader creates a loader. Results are not memoized between loads.
func NewElementLoader(lister ElementLister, wait time.Duration) *ElementLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		groups := make(map[batchGroup][]int)
		order := make([]batchGroup, 0)
		for i, k := range keys {
			key, ok := k.Raw().(ElementKey)
			if !ok {
				results[i] = &dataloader.Result{Error: fmt.Errorf("invalid element key %q", k.String())}
				continue
			}
			group := batchGroup{container: key.Container, loadProps: key.LoadProps}
			if _, seen := groups[group]; !seen {
				order = append(order, group)
			}
			groups[group] = append(groups[group], i)
		}

		for _, group := range order {
			positions := groups[group]
			ids := make([]int64, len(positions))
			for j, pos := range positions {
				ids[j] = keys[pos].Raw().(ElementKey).ID
			}

			collection, err := lister.List(ctx, group.container, domain.Query{
				Filter: domain.Filter{"ID": ids},
			}, group.loadProps)
			if err != nil {
				for _, pos := range positions {
					results[pos] = &dataloader.Result{Error: err}
				}
				continue
			}

			// Build results in the same order as keys
			for j, pos := range positions {
				if row, ok := collection.Get(ids[j]); ok {
					results[pos] = &dataloader.Result{Data: row}
				} else {
					results[pos] = &dataloader.Result{Data: nil}
				}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn,
		dataloader.WithWait(wait),
		dataloader.WithCache(&dataloader.NoCache{}),
	)

	return &ElementLoader{Loader: loader}
}

// Load resolves one element, returning nil when it does not exist.
func (l *ElementLoader) Load(ctx context.Context, key ElementKey) (*domain.OutputRow, error) {
	data, err := l.Loader.Load(ctx, key)()
	if err != nil {
		return nil, err
	}
	row, _ := data.(*domain.OutputRow)
	return row, nil
}
