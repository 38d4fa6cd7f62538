package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bidding "live-bidding/internal/biddingService"
	"live-bidding/internal/broadcast"
	model "live-bidding/internal/models"
	"live-bidding/internal/registry"
	"live-bidding/internal/repository"
	"live-bidding/internal/statestore"
)

// LoadScenario defines configurable benchmark parameters
type LoadScenario struct {
	Name            string
	NumUsers        int
	NumItems        int
	Watchers        int
	ReadRatio       int
	MaxBidIncrement int
	Burst           bool // if true, no delay between ops
}

// OperationMetrics collects latencies safely
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (min, max, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)))]
	p99 = latencies[int(0.99*float64(len(latencies)))]
	return
}

// countingSender stands in for the connection hub and only counts deliveries
type countingSender struct {
	delivered atomic.Int64
}

func (s *countingSender) Send(string, model.ServerMessage) error {
	s.delivered.Add(1)
	return nil
}

type perfStack struct {
	svc    *bidding.BiddingService
	sender *countingSender
}

func itemName(i int) string {
	return fmt.Sprintf("item_%d", i)
}

// setupStack wires the bidding service, state store and broadcast coordinator
// over an in-memory store of record. Every item gets watchers subscribers.
func setupStack(b *testing.B, numItems, watchers int) *perfStack {
	b.Helper()

	repo := repository.NewMemoryRepo()
	subs := registry.New()
	for i := 0; i < numItems; i++ {
		repo.AddItem(model.Item{ItemID: itemName(i), Title: "load test item", StartingPrice: 100, Status: model.ItemStatusActive})
		for w := 0; w < watchers; w++ {
			subs.Join(fmt.Sprintf("conn_%d_%d", i, w), itemName(i))
		}
	}

	sender := &countingSender{}
	coord := broadcast.NewCoordinator(subs, sender)
	store := statestore.New(repo, statestore.WithCommitHook(func(state model.ItemBidState, _ statestore.Origin) {
		coord.Publish(state.ItemID, state)
	}))
	coord.Start()
	store.Start()
	b.Cleanup(func() {
		store.Close()
		coord.Close()
	})

	return &perfStack{
		svc:    bidding.NewBiddingService(store, repo, bidding.Validator{}, bidding.DefaultCASRetries),
		sender: sender,
	}
}

// waitDelivered blocks until the coordinator has sent at least n messages
func (st *perfStack) waitDelivered(b *testing.B, n int64) {
	deadline := time.Now().Add(30 * time.Second)
	for st.sender.delivered.Load() < n {
		if time.Now().After(deadline) {
			b.Fatalf("delivered %d of %d messages", st.sender.delivered.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// Benchmark_Load_BiddingSystem runs multiple scenarios
func Benchmark_Load_BiddingSystem(b *testing.B) {
	scenarios := []LoadScenario{
		{"Low-Contention-WriteHeavy", 200, 200, 0, 0, 50, false},
		{"High-Contention-WriteHeavy", 500, 10, 0, 0, 20, false},
		{"Mixed-Workload", 300, 50, 20, 7, 30, false},
		{"ReadHeavy", 200, 50, 5, 9, 20, false},
		{"Edge-Case-SingleItem", 100, 1, 100, 5, 10, false},
		{"Peak-Burst", 500, 50, 50, 0, 20, true},
	}

	for _, s := range scenarios {
		b.Run(s.Name, func(b *testing.B) {
			runParallelScenario(b, s)
		})
	}
}

func runParallelScenario(b *testing.B, s LoadScenario) {
	b.ReportAllocs()

	st := setupStack(b, s.NumItems, s.Watchers)
	ctx := context.Background()

	var totalOps, successfulBids, rejectedBids, totalReads int64
	itemSuccess := make([]int64, s.NumItems)
	metrics := &OperationMetrics{}

	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			itemIndex := rnd.Intn(s.NumItems)
			itemID := itemName(itemIndex)

			opStart := time.Now()
			if rnd.Intn(10) < s.ReadRatio {
				if _, err := st.svc.Snapshot(ctx, itemID); err != nil {
					b.Logf("ignored read error: %v", err)
				}
				atomic.AddInt64(&totalReads, 1)
			} else {
				bidAmount := float64(100 + rnd.Intn(s.MaxBidIncrement))
				userID := fmt.Sprintf("user_%d", rnd.Intn(s.NumUsers))
				if _, err := st.svc.PlaceBid(ctx, proposal(itemID, userID, bidAmount)); err != nil {
					atomic.AddInt64(&rejectedBids, 1)
				} else {
					atomic.AddInt64(&successfulBids, 1)
					atomic.AddInt64(&itemSuccess[itemIndex], 1)
				}
			}

			metrics.Record(time.Since(opStart))
			atomic.AddInt64(&totalOps, 1)

			if !s.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	throughput := float64(totalOps) / elapsed.Seconds()
	min, max, avg, p95, p99 := metrics.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf(
		"Scenario: %s | Items: %d | Watchers/item: %d | Total Ops: %d | Accepted Bids: %d | Rejected Bids: %d | Reads: %d | Broadcasts: %d | Elapsed: %s | Throughput: %.2f ops/sec | Latency(us) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f | Memory Alloc: %.2f MB",
		s.Name, s.NumItems, s.Watchers, totalOps, successfulBids, rejectedBids, totalReads, st.sender.delivered.Load(), elapsed,
		throughput,
		float64(min.Microseconds()), float64(avg.Microseconds()), float64(max.Microseconds()),
		float64(p95.Microseconds()), float64(p99.Microseconds()),
		float64(mem.Alloc)/1024/1024,
	)

	for i, v := range itemSuccess {
		if v > 0 {
			b.Logf("Item %d accepted bids: %d", i, v)
		}
	}
}
