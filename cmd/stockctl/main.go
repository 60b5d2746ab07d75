// Command stockctl administers accounts and tokens of the stock
// management service directly against its credential store.
//
// Registration over HTTP only grants ROLE_USER; stockctl is how the first
// administrator gets provisioned:
//
//	stockctl user add root --email root@example.com --role ROLE_ADMIN --role ROLE_USER
//	stockctl token issue root
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultOpener).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
