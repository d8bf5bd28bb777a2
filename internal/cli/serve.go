package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkpath/plotline/internal/server"
	"github.com/inkpath/plotline/pkg/cache"
	"github.com/inkpath/plotline/pkg/store"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		storeDir string
		mongoURI string
		redis    string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Plotline HTTP API",
		Long: `Run the Plotline HTTP API.

Stories are persisted in a directory of JSON files by default; pass
--mongo-uri to use MongoDB instead. Analysis results are cached on disk,
or in Redis when --redis-addr is set, so multiple instances can share
one cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), serveParams{
				addr:     addr,
				storeDir: storeDir,
				mongoURI: mongoURI,
				redis:    redis,
				noCache:  noCache,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&storeDir, "store-dir", "", "directory for the file-backed story store")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI (overrides --store-dir)")
	cmd.Flags().StringVar(&redis, "redis-addr", "", "Redis address for a shared cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

type serveParams struct {
	addr     string
	storeDir string
	mongoURI string
	redis    string
	noCache  bool
}

func (c *CLI) runServe(ctx context.Context, params serveParams) error {
	params = c.applyServeConfig(params)

	st, err := c.newStore(ctx, params)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	ca, err := c.newServeCache(ctx, params)
	if err != nil {
		return err
	}
	defer ca.Close()

	srv := &http.Server{
		Addr:              params.addr,
		Handler:           server.New(server.Config{Store: st, Cache: ca, Logger: c.Logger}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("serving", "addr", params.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// applyServeConfig fills unset flags from the config file, then defaults.
func (c *CLI) applyServeConfig(params serveParams) serveParams {
	if params.addr == "" {
		params.addr = c.Config.Serve.Addr
	}
	if params.addr == "" {
		params.addr = ":8080"
	}
	if params.storeDir == "" {
		params.storeDir = c.Config.Serve.StoreDir
	}
	if params.mongoURI == "" {
		params.mongoURI = c.Config.Mongo.URI
	}
	if params.redis == "" {
		params.redis = c.Config.Redis.Addr
	}
	return params
}

func (c *CLI) newStore(ctx context.Context, params serveParams) (store.Store, error) {
	if params.mongoURI != "" {
		ms, err := store.NewMongoStore(ctx, store.MongoConfig{
			URI:        params.mongoURI,
			Database:   c.Config.Mongo.Database,
			Collection: c.Config.Mongo.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		c.Logger.Debug("using mongodb store")
		return ms, nil
	}

	dir := params.storeDir
	if dir == "" {
		dir = "stories"
	}
	fs, err := store.NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("using file store", "dir", dir)
	return fs, nil
}

func (c *CLI) newServeCache(ctx context.Context, params serveParams) (cache.Cache, error) {
	if params.noCache {
		return cache.NewNullCache(), nil
	}
	if params.redis != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     params.redis,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.Logger.Debug("using redis cache", "addr", params.redis)
		return rc, nil
	}
	return c.newCache(false), nil
}
