package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PeterSaffarian/replit-propertyrecommender/config"
	httpdelivery "github.com/PeterSaffarian/replit-propertyrecommender/internal/delivery/http"
	"github.com/PeterSaffarian/replit-propertyrecommender/internal/infrastructure/cache"
)

func newServeCmd() *cobra.Command {
	var refreshMetadata bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recommendation API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			pipeline, err := buildPipeline(cmd.Context(), cfg, refreshMetadata)
			if err != nil {
				return err
			}

			memCache := cache.NewMemoryCache()
			defer memCache.Close()

			handler := httpdelivery.NewHandler(pipeline, memCache, cfg.Cache.TTL, fetchOptions(cfg))
			router := httpdelivery.SetupRouter(cfg, handler)

			server := &http.Server{
				Addr:    ":" + cfg.Server.Port,
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("[SERVER] listening on :%s (%s)", cfg.Server.Port, cfg.Server.Environment)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Printf("[SERVER] shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&refreshMetadata, "refresh-metadata", false, "bypass the metadata file cache")

	return cmd
}
