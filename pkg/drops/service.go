package drops

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/dropfilter"
	"github.com/shishobooks/dropzone/pkg/entries"
	"github.com/shishobooks/dropzone/pkg/hostfs/billyfs"
	"github.com/shishobooks/dropzone/pkg/hostfs/s3fs"
	"github.com/shishobooks/dropzone/pkg/traversal"
)

var ErrS3NotConfigured = errors.New("s3 drop source is not configured")

type Service struct {
	traversal *traversal.Service
	local     *billyfs.Host
	remote    *s3fs.Host
	s3Prefix  string
}

type ServiceOptions struct {
	Local                  *billyfs.Host
	Remote                 *s3fs.Host
	S3Prefix               string
	MaterializeConcurrency int
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		traversal: traversal.NewService(traversal.Options{MaterializeConcurrency: opts.MaterializeConcurrency}),
		local:     opts.Local,
		remote:    opts.Remote,
		s3Prefix:  opts.S3Prefix,
	}
}

// DropLocal flattens paths dropped from the local drop root.
func (s *Service) DropLocal(ctx context.Context, paths []string) (*DropResponse, error) {
	return s.drop(ctx, s.local.Items(paths...))
}

// DropS3 flattens keys and folder prefixes dropped from the bucket.
func (s *Service) DropS3(ctx context.Context, prefixes []string) (*DropResponse, error) {
	if s.remote == nil {
		return nil, errors.WithStack(ErrS3NotConfigured)
	}

	keys := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		keys = append(keys, s.withPrefix(p))
	}
	return s.drop(ctx, s.remote.Items(ctx, keys...))
}

func (s *Service) withPrefix(p string) string {
	if s.s3Prefix == "" {
		return p
	}
	joined := path.Join(s.s3Prefix, p)
	if strings.HasSuffix(p, "/") {
		joined += "/"
	}
	return joined
}

func (s *Service) drop(ctx context.Context, items []entries.Item) (*DropResponse, error) {
	outcome, err := s.traversal.Run(ctx, items)
	if err != nil {
		return nil, err
	}

	files := dropfilter.Apply(outcome.Files)
	if skipped := len(outcome.Files) - len(files); skipped > 0 {
		logger.FromContext(ctx).Debug("filtered system files", logger.Data{"count": skipped})
	}

	resp := &DropResponse{
		RunID:    outcome.RunID,
		Files:    make([]File, 0, len(files)),
		Failures: make([]Failure, 0, len(outcome.Failures)),
		Total:    len(files),
	}
	for _, f := range files {
		resp.Files = append(resp.Files, File{
			RelativePath: f.RelativePath,
			Name:         f.Name,
			Size:         f.Size,
			MimeType:     f.MimeType,
		})
	}
	for _, f := range outcome.Failures {
		resp.Failures = append(resp.Failures, Failure{Path: f.EntryPath, Reason: f.Reason()})
	}

	return resp, nil
}
