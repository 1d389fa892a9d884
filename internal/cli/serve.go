package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abhesrivas/industriage/devui"
	"github.com/abhesrivas/industriage/internal/config"
	providerfactory "github.com/abhesrivas/industriage/providers/factory"
	"github.com/abhesrivas/industriage/workflow"
)

// serve starts the manual-test dashboard. One provider is shared across all
// loaded workflows; each workflow still uses its own configured model.
func serve(ctx context.Context, args []string) error {
	opts, _ := parseArgs(args)

	registry, err := workflow.LoadRoot(workflowRoot(opts))
	if err != nil {
		return err
	}

	backendKind := opts.backend
	if backendKind == "" {
		backendKind = config.Getenv("INDUSTRIAGE_BACKEND", "openai")
	}
	kind, err := providerfactory.ParseKind(backendKind)
	if err != nil {
		return err
	}
	provider, err := providerfactory.New(kind, providerfactory.Config{Model: opts.model})
	if err != nil {
		return err
	}

	session, err := devui.NewSession(registry, provider)
	if err != nil {
		return err
	}
	handler, err := devui.NewServer(session)
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = config.Getenv("INDUSTRIAGE_ADDR", ":8080")
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	fmt.Printf("dashboard listening on %s (%d workflows, backend %s)\n",
		addr, len(registry.Names()), backendKind)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
