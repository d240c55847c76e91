package xpool

import (
	"context"
	"testing"
)

func BenchmarkSubmit(b *testing.B) {
	p, err := New(Config{CoreSize: 4, MaxSize: 8, QueueCapacity: 1024, Policy: PolicyCallerRuns},
		WithLogger(discardLogger()))
	if err != nil {
		b.Fatal(err)
	}
	task := Func(func() {})

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if err := p.Submit(task); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()
	if err := p.Shutdown(context.Background()); err != nil {
		b.Fatal(err)
	}
}

func BenchmarkSubmitParallel(b *testing.B) {
	p, err := New(Config{CoreSize: 4, MaxSize: 8, QueueCapacity: 1024, Policy: PolicyCallerRuns},
		WithLogger(discardLogger()))
	if err != nil {
		b.Fatal(err)
	}
	task := Func(func() {})

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = p.Submit(task)
		}
	})
	b.StopTimer()
	_ = p.Close()
}
