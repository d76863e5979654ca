package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	httpAdapter "github.com/aretw0/cairn/internal/adapters/http"
	"github.com/aretw0/cairn/internal/cli"
	"github.com/aretw0/cairn/internal/presentation/tui"
	"github.com/aretw0/cairn/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction HTTP server",
	Long: `Starts the Cairn engine in server mode, exposing recording, prediction,
session and analysis endpoints as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := cli.Build(buildOptions(cmd))
		if err != nil {
			fmt.Printf("Error initializing cairn: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") && app.Config.Server.Port != 0 {
			port = app.Config.Server.Port
		}
		watch, _ := cmd.Flags().GetBool("watch")

		restoreWeights(cmd.Context(), app)

		handlerOpts := []httpAdapter.Option{httpAdapter.WithLogger(app.Logger)}
		if app.Config.Server.Metrics {
			reg := prometheus.NewRegistry()
			unbind := observability.New(reg).Bind(app.Engine)
			defer unbind()
			handlerOpts = append(handlerOpts, httpAdapter.WithMetricsHandler(
				promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}

		handler, err := httpAdapter.NewHandler(app.Engine, handlerOpts...)
		if err != nil {
			fmt.Printf("Error building HTTP handler: %v\n", err)
			os.Exit(1)
		}

		watchCtx, cancelWatch := context.WithCancel(context.Background())
		defer cancelWatch()
		if watch {
			go func() {
				if err := cli.WatchAndReload(watchCtx, app.Engine, app.Logger); err != nil {
					app.Logger.Error("definition watch unavailable", "err", err)
				}
			}()
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		if term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner()
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			app.Logger.Info("server listening", "addr", srv.Addr, "model_id", app.Engine.ModelID())
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)
			cancelWatch()

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}

			if app.HasStorage() {
				if err := app.Engine.SaveWeights(ctx); err != nil {
					app.Logger.Error("could not persist weights on shutdown", "err", err)
				}
			}
			fmt.Println("Cairn server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the definition when the source changes")
}
