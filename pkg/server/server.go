package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/dropzone/pkg/binder"
	"github.com/shishobooks/dropzone/pkg/config"
	"github.com/shishobooks/dropzone/pkg/drops"
	"github.com/shishobooks/dropzone/pkg/errcodes"
	"github.com/shishobooks/dropzone/pkg/hostfs/billyfs"
	"github.com/shishobooks/dropzone/pkg/hostfs/s3fs"
	"github.com/shishobooks/dropzone/pkg/metrics"
)

// New builds the API server. The S3 client is only created when a bucket is
// configured.
func New(ctx context.Context, cfg *config.Config) (*http.Server, error) {
	opts := drops.ServiceOptions{
		Local:                  billyfs.New(osfs.New(cfg.DropRoot), cfg.BatchSize),
		S3Prefix:               cfg.S3Prefix,
		MaterializeConcurrency: cfg.MaterializeConcurrency,
	}
	if cfg.S3Enabled() {
		client, err := s3fs.NewClient(ctx, s3fs.ClientOptions{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		opts.Remote = s3fs.New(client, cfg.S3Bucket, cfg.BatchSize)
	}

	e, err := newEcho(cfg, drops.NewService(opts))
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, dropsService *drops.Service) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	config.RegisterRoutes(e, cfg)
	drops.RegisterRoutes(e, dropsService)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
