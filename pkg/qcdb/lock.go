package qcdb

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/qcdb-go/qcdb/pkg/errkind"
)

// Locking architecture.
//
// The embedded header lock field (header.go, offLock) reserves space for
// the "process-shared multi-reader/single-writer coordination primitive"
// spec.md §3/§6.3 names, but carries no live state of its own. Real
// cross-process exclusion is provided by flock(2) on a sidecar
// "<table>.qcdb.lock" file, using LOCK_SH for readers and LOCK_EX for
// writers: flock natively supports genuine multi-reader/single-writer
// semantics, so (unlike a single named mutex) no reader concurrency is
// lost across processes (spec.md §9 "Inter-process lock substitution").
//
// Within one process, multiple handles opened on the same table file
// share one *registryEntry (keyed by device+inode) so that goroutines
// serialize through an in-process sync.RWMutex before any of them touches
// the shared file descriptor's flock state — flock state belongs to the
// open file description, not to a goroutine, so two goroutines racing
// Flock/Unlock on the same fd would otherwise corrupt each other's hold.
//
// Lock ordering is always: registryEntry.mu, then the sidecar flock.
// Release order is the reverse. There is no deadlock risk because every
// operation acquires at most one of each, never recursively.
//
// flock(2) is not recursive or refcounted per caller: a single shared
// lock on the fd is released in full by one LOCK_UN, regardless of how
// many goroutines consider themselves readers. Since mu.RLock lets many
// reader goroutines run concurrently, registryEntry additionally tracks
// the number of in-process shared holders and only calls Flock(LOCK_SH)
// on the 0->1 transition and Flock(LOCK_UN) on the 1->0 transition, so
// the OS-level shared lock stays held for as long as any in-process
// reader is using it — see the sharedMu/sharedCond fields below for how
// concurrent holders wait for that one Flock(LOCK_SH) call to actually
// complete before proceeding. Exclusive mode needs no such bookkeeping:
// mu.Lock already admits one goroutine at a time, so Flock(LOCK_EX)/
// Flock(LOCK_UN) pair up 1:1 with lockExclusive/unlockExclusive calls.

type fileIdentity struct {
	dev uint64
	ino uint64
}

func identityOf(f *os.File) (fileIdentity, error) {
	var st unix.Stat_t

	err := unix.Fstat(int(f.Fd()), &st)
	if err != nil {
		return fileIdentity{}, err
	}

	return fileIdentity{dev: uint64(st.Dev), ino: st.Ino}, nil
}

type registryEntry struct {
	mu       sync.RWMutex
	lockFile *os.File
	refCount int

	// sharedMu/sharedCond guard sharedHolders/sharedAcquiring/sharedReady:
	// the count of in-process goroutines currently holding the shared
	// flock via lockShared, whether one of them is currently the one
	// calling Flock(LOCK_SH), and whether that call has succeeded.
	// flock(2) is not refcounted per caller, so only one goroutine at a
	// time ever calls Flock(LOCK_SH)/Flock(LOCK_UN) on behalf of all
	// current in-process holders; every other concurrent holder waits on
	// sharedCond until sharedReady is true, so none of them proceeds
	// while the acquiring holder's (possibly blocking) Flock(LOCK_SH)
	// call is still in flight, and if that call fails, the next waiter
	// becomes the acquirer and retries rather than hanging forever.
	sharedMu        sync.Mutex
	sharedCond      *sync.Cond
	sharedHolders   int
	sharedAcquiring bool
	sharedReady     bool
}

var (
	registryMu sync.Mutex
	registry   = map[fileIdentity]*registryEntry{}
)

// acquireRegistryEntry returns the shared registryEntry for identity,
// opening (creating if necessary) the sidecar lock file at lockPath on
// first use, and incrementing the in-process reference count.
func acquireRegistryEntry(identity fileIdentity, lockPath string) (*registryEntry, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if e, ok := registry[identity]; ok {
		e.refCount++
		return e, nil
	}

	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errkind.Wrap(errkind.LockError, "opening sidecar lock file", err)
	}

	e := &registryEntry{lockFile: lf, refCount: 1}
	e.sharedCond = sync.NewCond(&e.sharedMu)
	registry[identity] = e

	return e, nil
}

// releaseRegistryEntry decrements the reference count and closes the
// sidecar lock file descriptor once the last handle for identity is gone.
func releaseRegistryEntry(identity fileIdentity) {
	registryMu.Lock()
	defer registryMu.Unlock()

	e, ok := registry[identity]
	if !ok {
		return
	}

	e.refCount--
	if e.refCount <= 0 {
		_ = e.lockFile.Close()
		delete(registry, identity)
	}
}

func (e *registryEntry) lockShared() error {
	e.mu.RLock()

	e.sharedMu.Lock()
	e.sharedHolders++

	for e.sharedAcquiring && !e.sharedReady {
		e.sharedCond.Wait()
	}

	if e.sharedReady {
		e.sharedMu.Unlock()
		return nil
	}

	// No one is acquiring and the lock isn't ready: we become the
	// acquirer on behalf of every current and future in-process holder.
	e.sharedAcquiring = true
	e.sharedMu.Unlock()

	err := unix.Flock(int(e.lockFile.Fd()), unix.LOCK_SH)

	e.sharedMu.Lock()
	e.sharedAcquiring = false

	if err != nil {
		e.sharedHolders--
		e.sharedCond.Broadcast()
		e.sharedMu.Unlock()

		e.mu.RUnlock()

		return errkind.Wrap(errkind.LockError, "acquiring shared lock", err)
	}

	e.sharedReady = true
	e.sharedCond.Broadcast()
	e.sharedMu.Unlock()

	return nil
}

func (e *registryEntry) unlockShared() {
	e.sharedMu.Lock()
	e.sharedHolders--

	// LOCK_UN is issued while sharedMu is still held, so a reader arriving
	// after this point cannot take LOCK_SH before this release lands.
	if e.sharedHolders == 0 {
		e.sharedReady = false
		_ = unix.Flock(int(e.lockFile.Fd()), unix.LOCK_UN)
	}

	e.sharedMu.Unlock()

	e.mu.RUnlock()
}

func (e *registryEntry) lockExclusive() error {
	e.mu.Lock()

	if err := unix.Flock(int(e.lockFile.Fd()), unix.LOCK_EX); err != nil {
		e.mu.Unlock()
		return errkind.Wrap(errkind.LockError, "acquiring exclusive lock", err)
	}

	return nil
}

func (e *registryEntry) unlockExclusive() {
	_ = unix.Flock(int(e.lockFile.Fd()), unix.LOCK_UN)
	e.mu.Unlock()
}

func sidecarLockPath(tablePath string) string {
	return fmt.Sprintf("%s.lock", tablePath)
}
