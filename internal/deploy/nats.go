package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/mirage/internal/config"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

// NATSSink stores files in a JetStream object store bucket.
type NATSSink struct {
	conn   *nats.Conn
	store  jetstream.ObjectStore
	bucket string
}

// NewNATSSink connects to d.URL and opens (or creates) the bucket named by
// d.ContainerName.
func NewNATSSink(ctx context.Context, d config.DeployConfig) (*NATSSink, error) {
	opts := []nats.Option{nats.Name("mirage-deploy"), nats.Timeout(10 * time.Second)}
	if d.AccessKey != "" || d.SecretKey != "" {
		opts = append(opts, nats.UserInfo(d.AccessKey, d.SecretKey))
	}
	conn, err := nats.Connect(d.URL, opts...)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", d.URL).
			Retryable().
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryDeploy, "failed to create JetStream context").Fatal().Build()
	}

	store, err := openBucket(ctx, js, d.ContainerName)
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryDeploy, "failed to open object store").
			WithContext("bucket", d.ContainerName).
			Fatal().
			Build()
	}

	slog.Info("NATS object store ready", logfields.URL(d.URL), logfields.Container(d.ContainerName))
	return &NATSSink{conn: conn, store: store, bucket: d.ContainerName}, nil
}

func openBucket(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.ObjectStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := js.ObjectStore(ctx, bucket)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	slog.Info("Creating object store bucket", logfields.Container(bucket))
	return js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "mirage site",
	})
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	_, err := s.store.Put(ctx, jetstream.ObjectMeta{Name: key}, r)
	return err
}

func (s *NATSSink) Commit(context.Context) error {
	return s.conn.Flush()
}

func (s *NATSSink) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
