package benchmarks

import (
	"context"
	"testing"

	"github.com/comalice/rovercore/internal/core"
)

func BenchmarkStepOnce_Transition(b *testing.B) {
	m := NewStartedMachine()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Post(PingPongEvents[i%2])
		if err := m.StepOnce(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkStepOnce_NoMatch measures a wake whose bits match no rule.
func BenchmarkStepOnce_NoMatch(b *testing.B) {
	m := NewStartedMachine()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Post(core.EvDockFound)
		if err := m.StepOnce(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTableMatch(b *testing.B) {
	t := core.DefaultTable()
	events := core.EvStop | core.EvLowBattery | core.EvObstacle

	for i := 0; i < b.N; i++ {
		if _, ok := t.Match(core.StateActive, events); !ok {
			b.Fatal("no match")
		}
	}
}

func BenchmarkPost_Parallel(b *testing.B) {
	m := NewStartedMachine()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.PostObstacle()
		}
	})
}
