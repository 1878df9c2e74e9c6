package main

import (
	"context"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/drops"
	"github.com/shishobooks/dropzone/pkg/hostfs/billyfs"
	"github.com/shishobooks/dropzone/pkg/hostfs/s3fs"
	"github.com/shishobooks/dropzone/pkg/version"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:        "dropls",
		Usage:       "list the files a drop would produce",
		Description: "Flattens dropped files and folders breadth-first and lists every file found.",
		Version:     version.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
			&cli.IntFlag{Name: "batch-size", Value: billyfs.DefaultBatchSize, EnvVars: []string{"BATCH_SIZE"}, Usage: "entries per directory read"},
			&cli.IntFlag{Name: "concurrency", Value: 8, EnvVars: []string{"MATERIALIZE_CONCURRENCY"}, Usage: "files materialized at once (0 = unbounded)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "local",
				Usage:     "drop paths from a local directory",
				ArgsUsage: "<path>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Value: ".", EnvVars: []string{"DROP_ROOT"}, Usage: "directory paths are relative to"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("at least one path is required", 1)
					}
					svc := drops.NewService(drops.ServiceOptions{
						Local:                  billyfs.New(osfs.New(c.String("root")), c.Int("batch-size")),
						MaterializeConcurrency: c.Int("concurrency"),
					})
					resp, err := svc.DropLocal(log.WithContext(c.Context), c.Args().Slice())
					if err != nil {
						return err
					}
					return render(c, resp)
				},
			},
			{
				Name:      "s3",
				Usage:     "drop keys and folder prefixes from an S3 bucket",
				ArgsUsage: "<key-or-prefix/>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "bucket", Required: true, EnvVars: []string{"S3_BUCKET"}},
					&cli.StringFlag{Name: "region", Value: "us-east-1", EnvVars: []string{"S3_REGION"}},
					&cli.StringFlag{Name: "endpoint", EnvVars: []string{"S3_ENDPOINT"}, Usage: "custom endpoint for S3-compatible stores"},
					&cli.StringFlag{Name: "access-key", EnvVars: []string{"S3_ACCESS_KEY"}},
					&cli.StringFlag{Name: "secret-key", EnvVars: []string{"S3_SECRET_KEY"}},
					&cli.StringFlag{Name: "prefix", EnvVars: []string{"S3_PREFIX"}, Usage: "prefix the arguments are relative to"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("at least one key or prefix is required", 1)
					}
					ctx := log.WithContext(c.Context)
					svc, err := s3Service(ctx, c)
					if err != nil {
						return err
					}
					resp, err := svc.DropS3(ctx, c.Args().Slice())
					if err != nil {
						return err
					}
					return render(c, resp)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("dropls error")
	}
}

func s3Service(ctx context.Context, c *cli.Context) (*drops.Service, error) {
	client, err := s3fs.NewClient(ctx, s3fs.ClientOptions{
		Region:    c.String("region"),
		Endpoint:  c.String("endpoint"),
		AccessKey: c.String("access-key"),
		SecretKey: c.String("secret-key"),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return drops.NewService(drops.ServiceOptions{
		Remote:                 s3fs.New(client, c.String("bucket"), c.Int("batch-size")),
		S3Prefix:               c.String("prefix"),
		MaterializeConcurrency: c.Int("concurrency"),
	}), nil
}

func render(c *cli.Context, resp *drops.DropResponse) error {
	if c.Bool("json") {
		return renderJSON(c.App.Writer, resp)
	}
	return renderText(c.App.Writer, resp)
}
