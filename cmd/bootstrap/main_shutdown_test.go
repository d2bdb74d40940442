package main

import (
	"context"
	"errors"
	"os"
	osSignal "os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recordingShutdowner struct {
	called   chan struct{}
	deadline bool
	err      error
}

func (r *recordingShutdowner) Shutdown(ctx context.Context) error {
	_, r.deadline = ctx.Deadline()
	r.called <- struct{}{}
	return r.err
}

func TestShutdownSignals(t *testing.T) {
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})

	signalNotify = func(ch chan<- os.Signal, sig ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}

	app := &recordingShutdowner{called: make(chan struct{}, 1), err: errors.New("drain timeout")}
	logger := zaptest.NewLogger(t)
	shutdown(app, time.Millisecond, logger)

	select {
	case <-app.called:
	case <-time.After(time.Second):
		t.Fatalf("expected application shutdown to execute")
	}
	if !app.deadline {
		t.Fatalf("expected shutdown context to carry the grace period deadline")
	}
}
