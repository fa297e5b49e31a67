package dataset

import (
	"errors"

	"golang.org/x/exp/rand"
)

// LoaderOptions control how a Loader cuts the dataset into batches.
type LoaderOptions struct {
	// BatchSize of zero or at least the dataset size yields the full dataset.
	BatchSize int
	Shuffle   bool
	Seed      uint64
}

// FullBatch reports whether every batch is the whole dataset, in order.
func (o LoaderOptions) FullBatch(size int) bool {
	return !o.Shuffle && (o.BatchSize <= 0 || o.BatchSize >= size)
}

// Loader yields batches from a dataset, cycling through it forever.
type Loader struct {
	data  *SampledDataset
	opts  LoaderOptions
	rng   *rand.Rand
	order []int
	pos   int
}

func NewLoader(data *SampledDataset, opts LoaderOptions) (*Loader, error) {
	if data == nil || data.Len() == 0 {
		return nil, errors.New("dataset: empty dataset")
	}
	if opts.BatchSize < 0 {
		return nil, errors.New("dataset: invalid batch size")
	}
	l := &Loader{
		data: data,
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
	l.order = make([]int, data.Len())
	for i := range l.order {
		l.order[i] = i
	}
	l.reset()
	return l, nil
}

func (l *Loader) reset() {
	l.pos = 0
	if l.opts.Shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// Options returns the options the loader was built with.
func (l *Loader) Options() LoaderOptions {
	return l.opts
}

// Dataset returns the dataset batches are cut from.
func (l *Loader) Dataset() *SampledDataset {
	return l.data
}

// Next returns a fresh copy of the next batch; callers may modify it.
func (l *Loader) Next() *Batch {
	n := l.data.Len()
	if l.opts.FullBatch(n) {
		return l.data.All().Clone()
	}
	size := l.opts.BatchSize
	if size <= 0 || size > n {
		size = n
	}
	if l.pos >= n {
		l.reset()
	}
	end := l.pos + size
	if end > n {
		end = n
	}
	rows := l.order[l.pos:end]
	l.pos = end
	return l.data.All().Slice(rows)
}
