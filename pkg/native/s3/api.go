package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/metrics"
)

// metaMode is the object metadata key holding octal permission bits.
const metaMode = "mode"

// instrument starts a span for one S3 API call and returns the func that
// ends it and records metrics.
func (c *Context) instrument(ctx context.Context, op, bucket, key string) (context.Context, func(error)) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.S3SpanName(op))
	span.SetAttributes(telemetry.Bucket(bucket), telemetry.Key(key))
	start := time.Now()

	return ctx, func(err error) {
		if err != nil && !isNotFoundError(err) {
			telemetry.RecordError(ctx, err)
		}
		span.End()
		metrics.ObserveS3Operation(c.driver.cfg.Metrics, op, time.Since(start), err)
	}
}

func (c *Context) headObject(ctx context.Context, bucket, key string) (*s3.HeadObjectOutput, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, done := c.instrument(ctx, "HeadObject", bucket, key)
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	done(err)
	return out, err
}

func (c *Context) headBucket(ctx context.Context, bucket string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, done := c.instrument(ctx, "HeadBucket", bucket, "")
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	done(err)
	return err
}

// getRange reads length bytes at offset into p.
func (c *Context) getRange(ctx context.Context, bucket, key string, offset int64, p []byte) (int, error) {
	client, err := c.client()
	if err != nil {
		return 0, err
	}
	ctx, done := c.instrument(ctx, "GetObject", bucket, key)

	rng := fmt.Sprintf("bytes=%d-%d", offset, offset+int64(len(p))-1)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(rng),
	})
	if err != nil {
		done(err)
		return 0, err
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	done(err)
	metrics.RecordS3Bytes(c.driver.cfg.Metrics, "GetObject", int64(n))
	return n, err
}

// getAll downloads a whole object.
func (c *Context) getAll(ctx context.Context, bucket, key string) ([]byte, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, done := c.instrument(ctx, "GetObject", bucket, key)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	done(err)
	metrics.RecordS3Bytes(c.driver.cfg.Metrics, "GetObject", int64(len(data)))
	return data, err
}

func (c *Context) putObject(ctx context.Context, bucket, key string, data []byte, mode uint32) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, done := c.instrument(ctx, "PutObject", bucket, key)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      modeMetadata(mode),
	})
	done(err)
	if err == nil {
		metrics.RecordS3Bytes(c.driver.cfg.Metrics, "PutObject", int64(len(data)))
	}
	return err
}

// copyObject copies src to dst within bucket. A non-nil meta replaces the
// object metadata.
func (c *Context) copyObject(ctx context.Context, bucket, src, dst string, meta map[string]string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, done := c.instrument(ctx, "CopyObject", bucket, dst)

	in := &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(url.PathEscape(bucket + "/" + src)),
	}
	if meta != nil {
		in.Metadata = meta
		in.MetadataDirective = types.MetadataDirectiveReplace
	}
	_, err = client.CopyObject(ctx, in)
	done(err)
	return err
}

func (c *Context) deleteObject(ctx context.Context, bucket, key string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, done := c.instrument(ctx, "DeleteObject", bucket, key)
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	done(err)
	return err
}

// listing is one level of a "/" delimited listing.
type listing struct {
	prefixes []string // full common prefixes, with trailing "/"
	keys     []string // full object keys
}

// list returns the entries under prefix. With delimited set only one level
// is returned; otherwise every key below prefix. limit > 0 stops early.
func (c *Context) list(ctx context.Context, bucket, prefix string, delimited bool, limit int) (listing, error) {
	client, err := c.client()
	if err != nil {
		return listing{}, err
	}
	ctx, done := c.instrument(ctx, "ListObjectsV2", bucket, prefix)

	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	if delimited {
		in.Delimiter = aws.String("/")
	}
	if limit > 0 {
		in.MaxKeys = aws.Int32(int32(limit))
	}

	var out listing
	pager := s3.NewListObjectsV2Paginator(client, in)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			done(err)
			return listing{}, err
		}
		for _, p := range page.CommonPrefixes {
			out.prefixes = append(out.prefixes, aws.ToString(p.Prefix))
		}
		for _, obj := range page.Contents {
			out.keys = append(out.keys, aws.ToString(obj.Key))
		}
		if limit > 0 && len(out.prefixes)+len(out.keys) >= limit {
			break
		}
	}
	done(nil)
	return out, nil
}

func (c *Context) listBuckets(ctx context.Context) ([]string, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, done := c.instrument(ctx, "ListBuckets", "", "")
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	done(err)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

func modeMetadata(mode uint32) map[string]string {
	return map[string]string{metaMode: strconv.FormatUint(uint64(mode&0o7777), 8)}
}

// modeFrom reads the permission bits from object metadata, falling back
// to def.
func modeFrom(meta map[string]string, def uint32) uint32 {
	v, ok := meta[metaMode]
	if !ok {
		return def
	}
	m, err := strconv.ParseUint(v, 8, 32)
	if err != nil {
		return def
	}
	return uint32(m) & 0o7777
}
