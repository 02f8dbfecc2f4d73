package main

import (
	"context"
	"testing"
	"time"

	"rover-core/models"
)

func TestSocketSinkWaitsForWriter(t *testing.T) {
	sink := socketSink{ctx: context.Background(), ch: make(chan models.Telemetry, 1)}
	sink.Send(models.Telemetry{CurrentJob: 1})

	sent := make(chan struct{})
	go func() {
		sink.Send(models.Telemetry{CurrentJob: 2})
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatalf("Expected send to wait while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	if got := <-sink.ch; got.CurrentJob != 1 {
		t.Errorf("Expected job 1 first, got %d", got.CurrentJob)
	}
	<-sent
	if got := <-sink.ch; got.CurrentJob != 2 {
		t.Errorf("Expected job 2 delivered, got %d", got.CurrentJob)
	}
}

func TestSocketSinkGivesUpOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := socketSink{ctx: ctx, ch: make(chan models.Telemetry)}

	done := make(chan struct{})
	go func() {
		sink.Send(models.Telemetry{})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Expected send to return after cancel")
	}
}
