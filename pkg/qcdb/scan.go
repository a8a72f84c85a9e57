package qcdb

import (
	"runtime"
	"sync"
)

// FindAll implements the parallel scan (C6): it partitions [0, high_water)
// into max(1, runtime.NumCPU()/2) contiguous shards, runs one worker per
// shard, and concatenates each worker's matches in shard order so the
// overall result is in ascending index order.
//
// Workers evaluate the predicate on the record at their current cursor
// before advancing — the original source (original_source/qcDB/qcDB.hh,
// FinderThread) advances the cursor first, which skips the first record
// of every shard and reads one past the end of the last one; that bug is
// fixed here (spec.md §9 "Finder thread off-by-one").
func (t *Table) FindAll(predicate Predicate) ([][]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	if err := t.entry.lockShared(); err != nil {
		return nil, err
	}
	defer t.entry.unlockShared()

	hw := headerHighWater(t.data)

	shards := shardRanges(0, hw, workerCount())

	results := make([][][]byte, len(shards))

	var wg sync.WaitGroup

	for i, sh := range shards {
		wg.Add(1)

		go func(i int, lo, hi uint64) {
			defer wg.Done()

			var matches [][]byte

			for idx := lo; idx < hi; idx++ {
				rec := t.slot(idx)
				if predicate(rec) {
					cp := make([]byte, len(rec))
					copy(cp, rec)
					matches = append(matches, cp)
				}
			}

			results[i] = matches
		}(i, sh.lo, sh.hi)
	}

	wg.Wait()

	var out [][]byte
	for _, r := range results {
		out = append(out, r...)
	}

	return out, nil
}

// workerCount returns max(1, reported hardware parallelism / 2), matching
// spec.md §4.4's "N = host-reported hardware parallelism divided by two
// (minimum 1)".
func workerCount() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}

	return n
}

type shardRange struct {
	lo, hi uint64
}

// shardRanges partitions [lo, hi) into n approximately equal contiguous,
// non-overlapping shards, in ascending order, covering every index
// exactly once; the first (hi-lo)%n shards are one index larger than the
// rest.
func shardRanges(lo, hi uint64, n int) []shardRange {
	total := hi - lo
	if total == 0 || n <= 0 {
		return nil
	}

	if uint64(n) > total {
		n = int(total)
	}

	base := total / uint64(n)
	remainder := total % uint64(n)

	shards := make([]shardRange, 0, n)
	cursor := lo

	for i := 0; i < n; i++ {
		size := base
		if uint64(i) < remainder {
			size++
		}

		shards = append(shards, shardRange{lo: cursor, hi: cursor + size})
		cursor += size
	}

	return shards
}
