// Package s3fs exposes an S3 bucket as a drop host. Key prefixes ending in a
// slash act as folders; each call to a folder reader fetches one
// ListObjectsV2 page.
package s3fs

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
)

const (
	delimiter = "/"

	// DefaultPageSize is the MaxKeys sent with every listing request.
	DefaultPageSize = 100

	// sniffBytes is how much of an untyped object is fetched to detect its
	// content type.
	sniffBytes = 3072
)

// API is the subset of the S3 client the host needs.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type ClientOptions struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewClient builds an S3 client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies. A custom
// endpoint switches to path-style addressing for S3-compatible stores.
func NewClient(ctx context.Context, opts ClientOptions) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type Host struct {
	api      API
	bucket   string
	pageSize int32
}

// New returns a host over bucket. A pageSize of zero or less uses
// DefaultPageSize.
func New(api API, bucket string, pageSize int) *Host {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Host{api: api, bucket: bucket, pageSize: int32(pageSize)}
}

// Items resolves dropped keys and prefixes. A value ending in a slash is a
// folder. Anything else is looked up as an object first and then as a folder;
// values that are neither produce an item without an entry.
func (h *Host) Items(ctx context.Context, keys ...string) []entries.Item {
	items := make([]entries.Item, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimPrefix(key, delimiter)
		items = append(items, item{entry: h.resolve(ctx, key)})
	}
	return items
}

func (h *Host) resolve(ctx context.Context, key string) entries.Entry {
	log := logger.FromContext(ctx)

	if key == "" {
		return h.dir("", "/")
	}
	if strings.HasSuffix(key, delimiter) {
		return h.dir(key, "/"+path.Base(strings.TrimSuffix(key, delimiter)))
	}

	_, err := h.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return h.file(key, "/"+path.Base(key))
	}
	if !isNotFound(err) {
		log.Err(err).Data(logger.Data{"key": key}).Warn("unable to resolve dropped key")
		return nil
	}

	out, err := h.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(h.bucket),
		Prefix:  aws.String(key + delimiter),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		log.Err(err).Data(logger.Data{"key": key}).Warn("unable to resolve dropped key")
		return nil
	}
	if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
		return nil
	}
	return h.dir(key+delimiter, "/"+path.Base(key))
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

func (h *Host) file(key, fullPath string) *fileEntry {
	return &fileEntry{host: h, key: key, fullPath: fullPath}
}

func (h *Host) dir(prefix, fullPath string) *dirEntry {
	return &dirEntry{host: h, prefix: prefix, fullPath: fullPath}
}

type item struct {
	entry entries.Entry
}

func (i item) Kind() entries.ItemKind { return entries.ItemKindFile }

func (i item) Entry() entries.Entry { return i.entry }

type fileEntry struct {
	host     *Host
	key      string
	fullPath string
}

func (e *fileEntry) Kind() entries.Kind { return entries.KindFile }
func (e *fileEntry) Name() string       { return path.Base(e.key) }
func (e *fileEntry) FullPath() string   { return e.fullPath }

func (e *fileEntry) File(ctx context.Context) (*entries.File, error) {
	h := e.host
	head, err := h.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(e.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(entries.ErrNotExist, "s3: head %q", e.key)
		}
		return nil, errors.Wrapf(err, "s3: head %q", e.key)
	}

	size := aws.ToInt64(head.ContentLength)
	mimeType := aws.ToString(head.ContentType)
	if untyped(mimeType) {
		mimeType = ""
		if size > 0 {
			mimeType, err = e.detect(ctx)
			if err != nil {
				return nil, err
			}
		}
	}

	key := e.key
	return entries.NewFile(e.Name(), size, mimeType, aws.ToTime(head.LastModified), func(ctx context.Context) (io.ReadCloser, error) {
		out, err := h.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(h.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "s3: get %q", key)
		}
		return out.Body, nil
	}), nil
}

func untyped(contentType string) bool {
	switch contentType {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}

// detect sniffs the start of the object. Types that can't be narrowed past a
// byte stream are reported as "".
func (e *fileEntry) detect(ctx context.Context) (string, error) {
	out, err := e.host.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.host.bucket),
		Key:    aws.String(e.key),
		Range:  aws.String("bytes=0-" + strconv.Itoa(sniffBytes-1)),
	})
	if err != nil {
		return "", errors.Wrapf(err, "s3: get %q", e.key)
	}
	defer out.Body.Close()

	mtype, err := mimetype.DetectReader(out.Body)
	if err != nil {
		return "", errors.Wrapf(err, "s3: detect %q", e.key)
	}
	if mtype.Is("application/octet-stream") {
		return "", nil
	}
	return mtype.String(), nil
}

type dirEntry struct {
	host     *Host
	prefix   string
	fullPath string
}

func (e *dirEntry) Kind() entries.Kind { return entries.KindDirectory }
func (e *dirEntry) Name() string       { return entries.BaseName(e.fullPath) }
func (e *dirEntry) FullPath() string   { return e.fullPath }

func (e *dirEntry) CreateReader() entries.DirectoryReader {
	return &reader{dir: e}
}

type reader struct {
	dir   *dirEntry
	token *string
	done  bool
}

// ReadEntries fetches the next listing page. Pages that only hold the
// folder's own placeholder object are skipped so an empty batch always means
// the listing is exhausted.
func (r *reader) ReadEntries(ctx context.Context) ([]entries.Entry, error) {
	h := r.dir.host
	for !r.done {
		out, err := h.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(h.bucket),
			Prefix:            aws.String(r.dir.prefix),
			Delimiter:         aws.String(delimiter),
			MaxKeys:           aws.Int32(h.pageSize),
			ContinuationToken: r.token,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "s3: list %q", r.dir.prefix)
		}

		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			r.token = out.NextContinuationToken
		} else {
			r.done = true
		}

		batch := make([]entries.Entry, 0, len(out.CommonPrefixes)+len(out.Contents))
		for _, cp := range out.CommonPrefixes {
			prefix := aws.ToString(cp.Prefix)
			name := path.Base(strings.TrimSuffix(prefix, delimiter))
			batch = append(batch, h.dir(prefix, entries.JoinPath(r.dir.fullPath, name)))
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == r.dir.prefix || strings.HasSuffix(key, delimiter) {
				continue
			}
			batch = append(batch, h.file(key, entries.JoinPath(r.dir.fullPath, path.Base(key))))
		}
		if len(batch) > 0 {
			return batch, nil
		}
	}
	return []entries.Entry{}, nil
}
