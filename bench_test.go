package stopbus

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

/**
 * 基准测试部分
 */

func BenchmarkFire(b *testing.B) {
	bus := New().Register(&counter{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Fire(ctx, bus, incEvent, i); err != nil {
			b.Fatal(err)
		}
	}
}

// 基准测试：嵌套调用
func BenchmarkFireNested(b *testing.B) {
	bus := New().Register(&counter{}).Register(&doubler{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Fire(ctx, bus, twiceEvent, i); err != nil {
			b.Fatal(err)
		}
	}
}

// 基准测试：错误沿调用链转发
func BenchmarkForwardError(b *testing.B) {
	bus := New().Register(&relay{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Fire(ctx, bus, outerEvent, "x"); err == nil {
			b.Fatal("fire succeeded")
		}
	}
}

// 基准测试：并发触发事件
func BenchmarkConcurrentFire(b *testing.B) {
	bus := New().Register(&counter{}).Register(&doubler{})
	ctx := context.Background()
	var fired int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ev := incEvent
			if rand.Intn(2) == 0 {
				ev = twiceEvent
			}
			if _, _, err := Fire(ctx, bus, ev, 1); err == nil {
				atomic.AddInt64(&fired, 1)
			}
		}
	})
	b.StopTimer() // 停止计时器

	b.ReportMetric(float64(atomic.LoadInt64(&fired)), "fires")
}

// 基准测试：频繁注册和注销
func BenchmarkRegisterDeregister(b *testing.B) {
	bus := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Register(&counter{})
		Deregister[*counter](bus)
	}
}

// 基准测试：大量 stop 的内存使用
func BenchmarkMemoryUsage(b *testing.B) {
	bus := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Register(&idle{})
		if i%100 == 0 {
			runtime.GC() // 强制进行垃圾回收
		}
	}
	b.StopTimer()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc), "bytes_allocated")
}

// idle handles nothing.
type idle struct{}

func (*idle) Handlers(r *Registry) *Registry { return r }

// 基准测试：并发注册、触发和注销
func BenchmarkConcurrentOperations(b *testing.B) {
	bus := New().Register(&counter{}).Register(&doubler{})
	ctx := context.Background()
	var fired int64
	var wg sync.WaitGroup

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			bus.Register(&idle{})
		}()
		go func() {
			defer wg.Done()
			if _, _, err := Fire(ctx, bus, twiceEvent, 1); err == nil {
				atomic.AddInt64(&fired, 1)
			}
		}()
		go func() {
			defer wg.Done()
			Deregister[*idle](bus)
		}()
	}

	wg.Wait()
	b.StopTimer()

	b.ReportMetric(float64(atomic.LoadInt64(&fired)), "fires")
}
