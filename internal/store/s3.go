package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 keeps each storage area in one JSON object. Other writers are detected
// by polling the object's ETag.
type S3 struct {
	client   ObjectAPI
	uploader *manager.Uploader
	bucket   string
	key      string
	logger   *slog.Logger
	interval time.Duration

	write  sync.Mutex
	mu     sync.Mutex
	values map[string]json.RawMessage
	etag   string
	closed bool
	hub    hub

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewS3Client builds an S3 client from the default AWS configuration chain.
// Static credentials and a custom endpoint are optional.
func NewS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func OpenS3(ctx context.Context, client ObjectAPI, bucket, prefix string, opts Options) (*S3, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrInvalidDSN)
	}

	s := &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		key:      path.Join(strings.Trim(prefix, "/"), AreaLocal+".json"),
		logger:   discardLogger(opts.Logger),
		interval: opts.pollInterval(),
		values:   make(map[string]json.RawMessage),
		done:     make(chan struct{}),
	}

	doc, etag, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.values, s.etag = doc.Values, etag

	s.wg.Add(1)
	go s.poll()

	return s, nil
}

func (s *S3) Key() string { return s.key }

func isMissing(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func (s *S3) fetch(ctx context.Context) (fileDocument, string, error) {
	doc := fileDocument{Area: AreaLocal, Values: make(map[string]json.RawMessage)}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if isMissing(err) {
		return doc, "", nil
	}
	if err != nil {
		return doc, "", fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return doc, "", fmt.Errorf("read s3 object: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return doc, "", fmt.Errorf("decode s3 object: %w", err)
		}
	}
	if doc.Values == nil {
		doc.Values = make(map[string]json.RawMessage)
	}
	return doc, aws.ToString(out.ETag), nil
}

func (s *S3) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return pick(s.values, keys), nil
}

func (s *S3) Set(ctx context.Context, origin string, values map[string]json.RawMessage) error {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	next := cloneValues(s.values)
	s.mu.Unlock()

	deltas := apply(next, values)
	if len(deltas) == 0 {
		return nil
	}

	data, err := json.Marshal(fileDocument{Origin: origin, Area: AreaLocal, Values: next})
	if err != nil {
		return fmt.Errorf("encode s3 object: %w", err)
	}
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, s.key, err)
	}

	s.mu.Lock()
	s.values = next
	s.etag = aws.ToString(out.ETag)
	s.mu.Unlock()

	s.hub.publish(Change{Area: AreaLocal, Origin: origin, Keys: deltas})
	return nil
}

func (s *S3) poll() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.refresh(); err != nil {
				s.logger.Warn("s3 store poll failed", "err", err)
			}
		}
	}
}

func (s *S3) refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.write.Lock()
	defer s.write.Unlock()

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	etag := ""
	switch {
	case isMissing(err):
	case err != nil:
		return fmt.Errorf("head s3 object: %w", err)
	default:
		etag = aws.ToString(head.ETag)
	}

	s.mu.Lock()
	known := s.etag
	s.mu.Unlock()
	if etag == known {
		return nil
	}

	doc, etag, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	deltas := diff(s.values, doc.Values)
	s.values, s.etag = doc.Values, etag
	s.mu.Unlock()

	s.hub.publish(Change{Area: AreaLocal, Origin: doc.Origin, Keys: deltas})
	return nil
}

func (s *S3) Subscribe(fn func(Change)) func() {
	return s.hub.subscribe(fn)
}

func (s *S3) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.wg.Wait()
		s.hub.reset()
	})
	return nil
}
