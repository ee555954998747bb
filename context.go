package mbs

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context which is canceled when the program
// is interrupted (i.e. receiving SIGINT or SIGTERM). CLI verbs use this so
// that a suspension point (§5: probe subprocess, resolver subprocess, file
// read) observes cancellation promptly instead of leaving partial state.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// Subsequent signals result in immediate termination, useful in case
		// an at-exit hook hangs:
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
