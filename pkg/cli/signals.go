package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context canceled on SIGINT or SIGTERM.
// One-shot commands run their work under it so an interrupt stops a
// ledger walk or an export cleanly instead of killing the process
// mid-write. Once the context is canceled default signal handling is
// restored, so a second interrupt terminates immediately.
func SetupSignalHandler() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()
	}()

	return ctx
}
