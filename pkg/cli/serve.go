package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/proxy"
)

// NewServeCommand creates the serve command running the console proxy
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console proxy in front of the backend",
		Long: `Run an HTTP proxy that forwards console API routes to the configured backend,
adding the stored bearer token when the caller sends none. Legacy
/api/workflows/{id}/... routes are rewritten to the configured workflows path.
Prometheus metrics are served at /metrics and a health check at /healthz.

Examples:
  flowcanvas serve
  flowcanvas serve --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = GlobalConfig.Settings.ProxyAddr
			}
			if addr == "" {
				addr = defaultProxyAddr
			}

			baseURL := BackendURL()
			token, err := tokenStore().Token(baseURL)
			if err != nil {
				log.Printf("cli: backend token not loaded: %v", err)
			}

			p, err := proxy.New(proxy.Config{
				BaseURL:       baseURL,
				WorkflowsPath: GlobalConfig.Settings.WorkflowsPath,
				Token:         token,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Proxy listening on %s → %s (Ctrl-C to stop)\n", addr, baseURL)
			return serveProxy(ctx, p, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config.yaml)")

	return cmd
}

// serveProxy is replaced in tests
var serveProxy = func(ctx context.Context, p *proxy.Proxy, addr string) error {
	return p.ListenAndServe(ctx, addr)
}
