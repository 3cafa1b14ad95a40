package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comalice/rovercore/internal/core"
	"github.com/comalice/rovercore/internal/extensibility"
	"github.com/comalice/rovercore/internal/production"
)

func main() {
	persister, err := production.NewJSONPersister(os.TempDir())
	if err != nil {
		panic(err)
	}

	publishChan := make(chan core.TransitionRecord, 100)
	publisher := production.NewChannelPublisher(publishChan)
	defer publisher.Close()

	actuators := &extensibility.DefaultActuators{}
	m := core.NewMachine(
		core.WithMachineID("demo-rover"),
		core.WithActuators(actuators),
		core.WithPersister(persister),
		core.WithPublisher(publisher),
		core.WithVisualizer(&production.DefaultVisualizer{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		panic(err)
	}
	defer m.SafeStop(context.Background())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for i, ev := range extensibility.BenchCycle {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			fmt.Println("\nShutting down gracefully...")
			return
		}

		m.Post(ev)
		if err := m.StepOnce(ctx); err != nil {
			fmt.Printf("Step error: %v\n", err)
		}
		fmt.Printf("\n--- Press %d: %s ---\n", i+1, core.FormatEvents(ev))
		fmt.Printf("State: %v  actuators: %+v\n", m.State(), actuators.State())
		fmt.Println("DOT:\n" + m.Visualize())
		select {
		case rec := <-publishChan:
			fmt.Printf("Published: #%d %v -> %v (%s)\n", rec.Seq, rec.From, rec.To, rec.Events)
		default:
		}
	}
	fmt.Println("Demo complete after one bench cycle.")
}
