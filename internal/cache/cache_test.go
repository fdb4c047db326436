package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/metrics"
	"fintrack/internal/presentation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLRU(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "1")
	c.Set("a", "2")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Size())

	c.Delete("a")
	assert.Zero(t, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_TTL(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clk.advance(30 * time.Second)
	c.Set("c", "3")
	clk.advance(31 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired(), "b expired, c still fresh")
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_PurgeAndMinimumSize(t *testing.T) {
	c, _ := newTestLRU(0, time.Minute)
	c.Set("a", "1")
	assert.Equal(t, 1, c.Size())
	c.Purge()
	assert.Zero(t, c.Size())
}

func TestManager_SweepAndStop(t *testing.T) {
	c, clk := newTestLRU(10, time.Second)
	c.Set("a", "1")
	clk.advance(2 * time.Second)

	m := NewManager()
	m.Register(c)
	assert.Equal(t, 1, m.Sweep())

	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	NewManager().Stop()
}

func TestDashboardCache(t *testing.T) {
	reg := metrics.New()
	dc := NewDashboardCache(8, time.Minute, reg)

	var renders atomic.Int32
	render := func(rev uint64) func() presentation.Dashboard {
		return func() presentation.Dashboard {
			renders.Add(1)
			return presentation.Dashboard{Revision: rev, SavingsLine: "Savings: 0.00 USD"}
		}
	}

	d := dc.Get(3, render(3))
	assert.Equal(t, uint64(3), d.Revision)
	dc.Get(3, render(3))
	assert.Equal(t, int32(1), renders.Load())

	dc.Get(4, render(4))
	assert.Equal(t, int32(2), renders.Load())
	assert.Equal(t, 2, dc.Size())

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))
}

func TestDashboardCache_ConcurrentMisses(t *testing.T) {
	dc := NewDashboardCache(8, time.Minute, nil)
	var renders atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := dc.Get(1, func() presentation.Dashboard {
				renders.Add(1)
				<-release
				return presentation.Dashboard{Revision: 1}
			})
			assert.Equal(t, uint64(1), d.Revision)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, renders.Load(), int32(10))
	assert.Equal(t, 1, dc.Size())
}
