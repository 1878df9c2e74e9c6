package s3fs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/dropzone/pkg/entries"
	"github.com/shishobooks/dropzone/pkg/traversal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	ListObjectsV2Func func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObjectFunc    func(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObjectFunc     func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)

	listCalls atomic.Int32
}

func (m *mockS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.listCalls.Add(1)
	if m.ListObjectsV2Func == nil {
		return nil, errors.New("ListObjectsV2 not configured")
	}
	return m.ListObjectsV2Func(ctx, params, optFns...)
}

func (m *mockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.HeadObjectFunc == nil {
		return nil, errors.New("HeadObject not configured")
	}
	return m.HeadObjectFunc(ctx, params, optFns...)
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc == nil {
		return nil, errors.New("GetObject not configured")
	}
	return m.GetObjectFunc(ctx, params, optFns...)
}

type object struct {
	body        string
	contentType string
}

var modTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// bucket wires the mock to an in-memory bucket that lists, heads and reads
// objects the way S3 does, including delimiter grouping and continuation
// tokens.
func bucket(objects map[string]object) *mockS3 {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := &mockS3{}
	m.ListObjectsV2Func = func(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		prefix := aws.ToString(in.Prefix)
		delim := aws.ToString(in.Delimiter)

		type listed struct {
			key      string
			isPrefix bool
		}
		var all []listed
		seen := map[string]bool{}
		for _, k := range keys {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			rest := k[len(prefix):]
			if delim != "" {
				if i := strings.Index(rest, delim); i >= 0 {
					cp := prefix + rest[:i+1]
					if !seen[cp] {
						seen[cp] = true
						all = append(all, listed{key: cp, isPrefix: true})
					}
					continue
				}
			}
			all = append(all, listed{key: k})
		}

		start := 0
		if in.ContinuationToken != nil {
			start, _ = strconv.Atoi(*in.ContinuationToken)
		}
		maxKeys := int(aws.ToInt32(in.MaxKeys))
		if maxKeys <= 0 {
			maxKeys = 1000
		}
		end := start + maxKeys
		if end > len(all) {
			end = len(all)
		}

		out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(all))}
		if end < len(all) {
			out.NextContinuationToken = aws.String(strconv.Itoa(end))
		}
		for _, l := range all[start:end] {
			if l.isPrefix {
				out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(l.key)})
				continue
			}
			out.Contents = append(out.Contents, types.Object{
				Key:  aws.String(l.key),
				Size: aws.Int64(int64(len(objects[l.key].body))),
			})
		}
		return out, nil
	}
	m.HeadObjectFunc = func(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		obj, ok := objects[aws.ToString(in.Key)]
		if !ok {
			return nil, &types.NotFound{}
		}
		out := &s3.HeadObjectOutput{
			ContentLength: aws.Int64(int64(len(obj.body))),
			LastModified:  aws.Time(modTime),
		}
		if obj.contentType != "" {
			out.ContentType = aws.String(obj.contentType)
		}
		return out, nil
	}
	m.GetObjectFunc = func(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		obj, ok := objects[aws.ToString(in.Key)]
		if !ok {
			return nil, &types.NoSuchKey{}
		}
		body := obj.body
		if r := aws.ToString(in.Range); r != "" {
			var from, to int
			_, err := fmt.Sscanf(r, "bytes=%d-%d", &from, &to)
			if err != nil {
				return nil, err
			}
			if to+1 < len(body) {
				body = body[from : to+1]
			}
		}
		return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
	}
	return m
}

func sampleBucket() *mockS3 {
	return bucket(map[string]object{
		"top.txt":              {body: "hello", contentType: "text/plain"},
		"photos/":              {},
		"photos/a.jpg":         {body: "jpeg", contentType: "image/jpeg"},
		"photos/b.pdf":         {body: "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n", contentType: "binary/octet-stream"},
		"photos/c.bin":         {body: "\x00\x01\x02\x03\xfe\xff"},
		"photos/2024/d.jpg":    {body: "jpeg", contentType: "image/jpeg"},
		"photos/2024/e/f.jpg":  {body: "jpeg", contentType: "image/jpeg"},
		"docs/readme.md":       {body: "# readme", contentType: "text/markdown"},
		"docs/guides/intro.md": {body: "# intro", contentType: "text/markdown"},
	})
}

func TestItems_Resolve(t *testing.T) {
	t.Parallel()
	h := New(sampleBucket(), "drops", 0)
	ctx := context.Background()

	items := h.Items(ctx, "top.txt", "/photos/", "docs", "missing", "photos/2024/")
	require.Len(t, items, 5)

	top := items[0].Entry()
	require.NotNil(t, top)
	assert.Equal(t, entries.KindFile, top.Kind())
	assert.Equal(t, "/top.txt", top.FullPath())

	photos := items[1].Entry()
	require.NotNil(t, photos)
	assert.Equal(t, entries.KindDirectory, photos.Kind())
	assert.Equal(t, "/photos", photos.FullPath())
	assert.Equal(t, "photos", photos.Name())

	docs := items[2].Entry()
	require.NotNil(t, docs)
	assert.Equal(t, entries.KindDirectory, docs.Kind())
	assert.Equal(t, "/docs", docs.FullPath())

	assert.Nil(t, items[3].Entry())

	nested := items[4].Entry()
	require.NotNil(t, nested)
	assert.Equal(t, "/2024", nested.FullPath())
}

func TestItems_HeadErrorLeavesNoEntry(t *testing.T) {
	t.Parallel()
	m := sampleBucket()
	m.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, errors.New("access denied")
	}
	h := New(m, "drops", 0)

	items := h.Items(logger.New().WithContext(context.Background()), "top.txt")
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Entry())
}

func TestReader_OneListCallPerBatch(t *testing.T) {
	t.Parallel()
	objects := map[string]object{}
	for i := 0; i < 5; i++ {
		objects[fmt.Sprintf("many/%02d.txt", i)] = object{body: "x", contentType: "text/plain"}
	}
	m := bucket(objects)
	h := New(m, "drops", 2)
	ctx := context.Background()

	d := h.Items(ctx, "many/")[0].Entry().(entries.DirectoryEntry)
	r := d.CreateReader()

	var sizes []int
	var paths []string
	for i := 0; i < 10; i++ {
		batch, err := r.ReadEntries(ctx)
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
		for _, e := range batch {
			paths = append(paths, e.FullPath())
		}
		if len(batch) == 0 {
			break
		}
	}

	assert.Equal(t, []int{2, 2, 1, 0}, sizes)
	assert.Equal(t, int32(3), m.listCalls.Load())
	assert.Equal(t, "/many/00.txt", paths[0])
	assert.Equal(t, "/many/04.txt", paths[4])
}

func TestReader_PrefixesAndPlaceholders(t *testing.T) {
	t.Parallel()
	h := New(sampleBucket(), "drops", 0)
	ctx := context.Background()

	d := h.Items(ctx, "photos/")[0].Entry().(entries.DirectoryEntry)
	batch, err := d.CreateReader().ReadEntries(ctx)
	require.NoError(t, err)

	got := make([]string, 0, len(batch))
	for _, e := range batch {
		got = append(got, fmt.Sprintf("%s:%s", e.Kind(), e.FullPath()))
	}
	assert.Equal(t, []string{
		"directory:/photos/2024",
		"file:/photos/a.jpg",
		"file:/photos/b.pdf",
		"file:/photos/c.bin",
	}, got)
}

func TestReader_PlaceholderOnlyPageIsSkipped(t *testing.T) {
	t.Parallel()
	m := bucket(map[string]object{
		"dir/":       {},
		"dir/z.txt":  {body: "z", contentType: "text/plain"},
		"dir/zz.txt": {body: "zz", contentType: "text/plain"},
	})
	h := New(m, "drops", 1)
	ctx := context.Background()

	r := h.Items(ctx, "dir/")[0].Entry().(entries.DirectoryEntry).CreateReader()
	first, err := r.ReadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "/dir/z.txt", first[0].FullPath())
}

func TestReader_ListError(t *testing.T) {
	t.Parallel()
	m := sampleBucket()
	h := New(m, "drops", 0)
	ctx := context.Background()
	d := h.Items(ctx, "photos/")[0].Entry().(entries.DirectoryEntry)

	m.ListObjectsV2Func = func(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		return nil, errors.New("throttled")
	}
	_, err := d.CreateReader().ReadEntries(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestFile_Metadata(t *testing.T) {
	t.Parallel()
	h := New(sampleBucket(), "drops", 0)
	ctx := context.Background()

	tests := []struct {
		key      string
		size     int64
		mimeType string
	}{
		{"top.txt", 5, "text/plain"},
		{"photos/b.pdf", 29, "application/pdf"},
		{"photos/c.bin", 6, ""},
	}
	for _, tt := range tests {
		fe := h.Items(ctx, tt.key)[0].Entry().(entries.FileEntry)
		f, err := fe.File(ctx)
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.size, f.Size, tt.key)
		assert.Equal(t, tt.mimeType, f.MimeType, tt.key)
		assert.Equal(t, modTime, f.ModTime, tt.key)
	}
}

func TestFile_Open(t *testing.T) {
	t.Parallel()
	h := New(sampleBucket(), "drops", 0)
	ctx := context.Background()

	f, err := h.Items(ctx, "top.txt")[0].Entry().(entries.FileEntry).File(ctx)
	require.NoError(t, err)
	rc, err := f.Open(ctx)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFile_OpenHonorsContext(t *testing.T) {
	t.Parallel()
	m := sampleBucket()
	h := New(m, "drops", 0)
	ctx := context.Background()

	f, err := h.Items(ctx, "top.txt")[0].Entry().(entries.FileEntry).File(ctx)
	require.NoError(t, err)

	get := m.GetObjectFunc
	m.GetObjectFunc = func(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return get(ctx, in, optFns...)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Open(cancelled)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), `s3: get "top.txt"`)
}

func TestFile_DeletedAfterListing(t *testing.T) {
	t.Parallel()
	m := sampleBucket()
	h := New(m, "drops", 0)
	ctx := context.Background()
	fe := h.Items(ctx, "top.txt")[0].Entry().(entries.FileEntry)

	m.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, &types.NotFound{}
	}
	_, err := fe.File(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entries.ErrNotExist))
}

func TestTraversal_OverBucket(t *testing.T) {
	t.Parallel()
	h := New(sampleBucket(), "drops", 2)
	ctx := logger.New().WithContext(context.Background())

	svc := traversal.NewService(traversal.Options{MaterializeConcurrency: 3})
	outcome, err := svc.Run(ctx, h.Items(ctx, "top.txt", "photos/", "docs/"))
	require.NoError(t, err)
	require.Empty(t, outcome.Failures)

	paths := make([]string, 0, len(outcome.Files))
	for _, f := range outcome.Files {
		paths = append(paths, f.RelativePath)
	}
	assert.Equal(t, []string{
		"/top.txt",
		"/photos/a.jpg",
		"/photos/b.pdf",
		"/photos/c.bin",
		"/docs/readme.md",
		"/photos/2024/d.jpg",
		"/docs/guides/intro.md",
		"/photos/2024/e/f.jpg",
	}, paths)
}
