package qcdb_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qcdb-go/qcdb/pkg/errkind"
)

// TestConcurrentWritersAndReaders exercises spec.md §8 scenario 5: K
// writer goroutines each hammer WriteAt at a fixed index in a loop while
// K reader goroutines cycle through the indices concurrently. After everyone
// joins, every slot must equal exactly one writer's last value for that
// slot, and no reader may see anything other than a committed write (or
// an allowed LockError).
func TestConcurrentWritersAndReaders(t *testing.T) {
	const capacity = 8

	tbl := createTestTable(t, capacity)

	deadline := time.Now().Add(300 * time.Millisecond)

	var wg sync.WaitGroup

	lastByIndex := make([]int32, capacity)

	var mu sync.Mutex

	for w := 0; w < 4; w++ {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			idx := uint64(w % capacity)
			val := int32(1)

			for time.Now().Before(deadline) {
				rec := ageRecord(val)

				err := tbl.WriteAt(idx, rec)
				require.NoError(t, err)

				mu.Lock()
				lastByIndex[idx] = val
				mu.Unlock()

				val++
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)

		go func(seed int) {
			defer wg.Done()

			buf := make([]byte, 4)
			idx := uint64(seed % capacity)

			for time.Now().Before(deadline) {
				err := tbl.Read(idx, buf)
				if err != nil {
					require.Equal(t, errkind.LockError, errkind.KindOf(err))
				}

				idx = (idx + 1) % capacity
			}
		}(r)
	}

	wg.Wait()

	buf := make([]byte, 4)

	for w := 0; w < 4; w++ {
		idx := uint64(w % capacity)

		require.NoError(t, tbl.Read(idx, buf))

		mu.Lock()
		want := lastByIndex[idx]
		mu.Unlock()

		require.EqualValues(t, want, recordAge(buf))
	}
}
