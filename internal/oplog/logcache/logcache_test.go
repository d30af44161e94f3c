package logcache

import (
	"sync"
	"testing"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// countLogger is the simplest possible logger: a batch of pending
// increments. Applying it immediately on flush is legal because addition
// commutes, so no cross-CPU ordering is needed.
type countLogger struct {
	n int
}

// counter is a logged object summing increments. total is only touched by
// the flush hooks, which the engine calls under the object lock.
type counter struct {
	base     Object[countLogger]
	total    int
	finishes int
}

func newCounter(c *Cache[countLogger]) *counter {
	ctr := &counter{}
	ctr.base.Init(c, ctr)
	return ctr
}

func (c *counter) FlushLogger(l *countLogger) {
	c.total += l.n
	l.n = 0
}

func (c *counter) FlushFinish() {
	c.finishes++
}

func (c *counter) add(n int) {
	ll := c.base.AcquireLogger()
	ll.Logger().n += n
	ll.Unlock()
}

// read synchronizes and returns the stable total.
func (c *counter) read() int {
	g := c.base.Synchronize()
	defer g.Unlock()
	return c.total
}

// collide allocates counters until two of them hash to the same way, so
// eviction tests do not depend on heap layout luck.
func collide(t *testing.T, c *Cache[countLogger]) (a, b *counter) {
	t.Helper()
	byWay := make(map[int]*counter)
	for i := 0; i < 100000; i++ {
		ctr := newCounter(c)
		w := hashObject(uintptr(unsafe.Pointer(&ctr.base)))
		if prev, ok := byWay[w]; ok {
			return prev, ctr
		}
		byWay[w] = ctr
	}
	t.Fatal("no hash collision in 100000 allocations")
	return nil, nil
}

func TestNoLostWrites(t *testing.T) {
	const (
		writers = 8
		perGoro = 10000
	)
	c := newCounter(NewCache[countLogger]())

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoro; j++ {
				c.add(1)
			}
		}()
	}
	wg.Wait()

	if got := c.read(); got != writers*perGoro {
		t.Errorf("total = %d, want %d", got, writers*perGoro)
	}
}

// TestConcurrentReaders runs synchronize concurrently with writers; the
// final read must still see the union of all writes exactly once.
func TestConcurrentReaders(t *testing.T) {
	const (
		writers = 4
		readers = 2
		perGoro = 5000
	)
	c := newCounter(NewCache[countLogger]())

	var eg errgroup.Group
	for i := 0; i < writers; i++ {
		eg.Go(func() error {
			for j := 0; j < perGoro; j++ {
				c.add(1)
			}
			return nil
		})
	}
	for i := 0; i < readers; i++ {
		eg.Go(func() error {
			for j := 0; j < 100; j++ {
				g := c.base.Synchronize()
				g.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := c.read(); got != writers*perGoro {
		t.Errorf("total = %d, want %d", got, writers*perGoro)
	}
}

func TestIdempotentSynchronize(t *testing.T) {
	c := newCounter(NewCache[countLogger]())
	c.add(3)
	c.add(4)

	if got := c.read(); got != 7 {
		t.Fatalf("first synchronize: total = %d, want 7", got)
	}

	// No intervening writes: the second synchronize must not re-apply
	// anything, only run the finish hook again.
	if got := c.read(); got != 7 {
		t.Errorf("second synchronize: total = %d, want 7 (re-application)", got)
	}
	if c.finishes != 2 {
		t.Errorf("finishes = %d, want 2", c.finishes)
	}
}

// TestEviction forces two objects onto one way of one CPU. Writing to B
// after A must flush A's logger during eviction, and A's write must be
// observable via A's own synchronize even though A was never explicitly
// synchronized before.
func TestEviction(t *testing.T) {
	cache := NewCache[countLogger]()
	a, b := collide(t, cache)
	const id = 0 // pin everything to one CPU's cache

	ll := a.base.acquireOn(id)
	ll.Logger().n += 11
	ll.Unlock()

	// B takes the same way, evicting A's logger.
	ll = b.base.acquireOn(id)
	ll.Logger().n += 22
	ll.Unlock()

	// Eviction flushed A eagerly (counting loggers may do that), so A's
	// write is already in A's total; synchronize must observe it.
	if got := a.read(); got != 11 {
		t.Errorf("a.total = %d, want 11 (evicted write lost)", got)
	}
	if got := b.read(); got != 22 {
		t.Errorf("b.total = %d, want 22", got)
	}

	// And A's CPU bit must be clear: its logger no longer occupies the way.
	g := a.base.Lock()
	a.base.cpus.ForEach(func(bit int) {
		t.Errorf("a still has CPU bit %d set after eviction and synchronize", bit)
	})
	g.Unlock()
}

// TestEvictionPingPong bounces two colliding objects off the same way
// under concurrent synchronizes, exercising the back-out retry path. The
// race detector and the totals check both watch for protocol breaks.
func TestEvictionPingPong(t *testing.T) {
	cache := NewCache[countLogger]()
	a, b := collide(t, cache)
	const (
		iters = 20000
		id    = 1
	)

	var eg errgroup.Group
	eg.Go(func() error {
		for i := 0; i < iters; i++ {
			ll := a.base.acquireOn(id)
			ll.Logger().n++
			ll.Unlock()
		}
		return nil
	})
	eg.Go(func() error {
		for i := 0; i < iters; i++ {
			ll := b.base.acquireOn(id)
			ll.Logger().n++
			ll.Unlock()
		}
		return nil
	})
	eg.Go(func() error {
		for i := 0; i < 200; i++ {
			a.base.Synchronize().Unlock()
			b.base.Synchronize().Unlock()
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := a.read(); got != iters {
		t.Errorf("a.total = %d, want %d", got, iters)
	}
	if got := b.read(); got != iters {
		t.Errorf("b.total = %d, want %d", got, iters)
	}
}

// TestSynchronizeIncludesPriorWrites checks the one-sided inclusion
// guarantee from the caller's side: everything written before Synchronize
// is entered must be visible under the returned guard.
func TestSynchronizeIncludesPriorWrites(t *testing.T) {
	c := newCounter(NewCache[countLogger]())
	for i := 0; i < 100; i++ {
		c.add(1)
		if got := c.read(); got != i+1 {
			t.Fatalf("after %d writes: total = %d", i+1, got)
		}
	}
}

func TestCloseDiscardsAndUnbinds(t *testing.T) {
	cache := NewCache[countLogger]()
	c := newCounter(cache)

	ll := c.base.acquireOn(2)
	ll.Logger().n += 5
	ll.Unlock()

	c.base.Close(func(l *countLogger) { l.n = 0 })

	// Close discards, it does not apply.
	if c.total != 0 {
		t.Errorf("total = %d after Close, want 0 (teardown applied ops)", c.total)
	}

	// The way must be free again: a fresh object can bind it without an
	// eviction flushing into the dead object.
	if cc := cache.percpu[2].Load(); cc != nil {
		if cc.wayFor(&c.base).obj.Load() == &c.base {
			t.Error("way still bound to closed object")
		}
	}
}

func TestCloseAfterSynchronize(t *testing.T) {
	cache := NewCache[countLogger]()
	c := newCounter(cache)

	ll := c.base.acquireOn(1)
	ll.Logger().n++
	ll.Unlock()
	c.base.Synchronize().Unlock()

	// The synchronize cleared the CPU bit but left the logger cached;
	// teardown must find and unbind the way anyway.
	c.base.Close(func(l *countLogger) { l.n = 0 })

	if cc := cache.percpu[1].Load(); cc != nil {
		if cc.wayFor(&c.base).obj.Load() == &c.base {
			t.Error("way still bound to closed object after synchronize")
		}
	}
}

func TestInitTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("second Init did not panic")
		}
	}()
	cache := NewCache[countLogger]()
	c := newCounter(cache)
	c.base.Init(cache, c)
}

func TestSyncGuardDoubleUnlockPanics(t *testing.T) {
	c := newCounter(NewCache[countLogger]())
	g := c.base.Synchronize()
	g.Unlock()
	defer func() {
		if recover() == nil {
			t.Error("second Unlock did not panic")
		}
	}()
	g.Unlock()
}

func TestHashObjectInRange(t *testing.T) {
	addrs := []uint64{0, 8, 0xc000010000, 0xffffffffffffffff, 4096, 1 << 47}
	for _, a := range addrs {
		if w := hashObject(uintptr(a)); w < 0 || w >= NumWays {
			t.Errorf("hashObject(%#x) = %d, want [0, %d)", a, w, NumWays)
		}
	}
}

// TestHashSpreadsAlignedAddresses guards against the failure mode the bit
// mixing exists for: heap addresses sharing all their low bits must not
// pile onto a handful of ways.
func TestHashSpreadsAlignedAddresses(t *testing.T) {
	seen := make(map[int]int)
	base := uint64(0xc000000000)
	for i := 0; i < 4096; i++ {
		seen[hashObject(uintptr(base+uint64(i)*64))]++
	}
	if len(seen) < NumWays/4 {
		t.Errorf("4096 aligned addresses landed on only %d ways", len(seen))
	}
}

func BenchmarkAcquireRelease(b *testing.B) {
	c := newCounter(NewCache[countLogger]())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ll := c.base.AcquireLogger()
		ll.Logger().n++
		ll.Unlock()
	}
}

func BenchmarkAcquireReleaseParallel(b *testing.B) {
	c := newCounter(NewCache[countLogger]())
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ll := c.base.AcquireLogger()
			ll.Logger().n++
			ll.Unlock()
		}
	})
	g := c.base.Synchronize()
	g.Unlock()
}

func BenchmarkSynchronizeEmpty(b *testing.B) {
	c := newCounter(NewCache[countLogger]())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.base.Synchronize().Unlock()
	}
}
