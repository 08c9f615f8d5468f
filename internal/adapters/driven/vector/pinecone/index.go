// Package pinecone implements the vector index port on a Pinecone index,
// using the official Go SDK's data-plane connection.
package pinecone

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/pinecone-io/go-pinecone/v3/pinecone"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

const (
	// MaxUpsertBatch is the largest number of vectors sent per upsert call.
	MaxUpsertBatch = 100

	// defaultMaxAttempts bounds retries on throttled or unavailable calls.
	defaultMaxAttempts = 3
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Conn is the part of the SDK's index connection the adapter uses.
type Conn interface {
	UpsertVectors(ctx context.Context, in []*sdk.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *sdk.QueryByVectorValuesRequest) (*sdk.QueryVectorsResponse, error)
	DeleteVectorsByFilter(ctx context.Context, filter *sdk.MetadataFilter) error
	DescribeIndexStats(ctx context.Context) (*sdk.DescribeIndexStatsResponse, error)
	Close() error
}

var _ Conn = (*sdk.IndexConnection)(nil)

// Index is a Pinecone-backed vector index.
type Index struct {
	host        string
	namespace   string
	conn        Conn
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
}

// Option configures an Index.
type Option func(*Index)

// WithConn replaces the SDK connection.
func WithConn(c Conn) Option {
	return func(i *Index) {
		i.conn = c
	}
}

// WithNamespace scopes every call to namespace.
func WithNamespace(namespace string) Option {
	return func(i *Index) {
		i.namespace = namespace
	}
}

// WithBackoff sets the base delay between retries. Attempt n waits n*d.
func WithBackoff(d time.Duration) Option {
	return func(i *Index) {
		i.backoff = d
	}
}

// WithRateLimit caps calls per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(i *Index) {
		i.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewIndex connects to the index served at host. A scheme prefix on host
// is accepted and dropped.
func NewIndex(host, apiKey string, opts ...Option) (*Index, error) {
	if host == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: PINECONE_HOST and PINECONE_API_KEY are required", domain.ErrConfigMissing)
	}
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")

	idx := &Index{
		host:        strings.TrimRight(host, "/"),
		limiter:     rate.NewLimiter(rate.Inf, 1),
		maxAttempts: defaultMaxAttempts,
		backoff:     time.Second,
	}
	for _, opt := range opts {
		opt(idx)
	}

	if idx.conn == nil {
		client, err := sdk.NewClient(sdk.NewClientParams{ApiKey: apiKey})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		conn, err := client.Index(sdk.NewIndexConnParams{Host: idx.host, Namespace: idx.namespace})
		if err != nil {
			return nil, fmt.Errorf("%w: connect %s: %w", domain.ErrVectorIndexUnavailable, idx.host, err)
		}
		idx.conn = conn
	}
	return idx, nil
}

// Upsert writes records in calls of at most MaxUpsertBatch vectors.
func (i *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	for start := 0; start < len(records); start += MaxUpsertBatch {
		end := min(start+MaxUpsertBatch, len(records))

		vectors := make([]*sdk.Vector, 0, end-start)
		for _, r := range records[start:end] {
			md, err := toStruct(r.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
			}
			values := r.Values
			vectors = append(vectors, &sdk.Vector{Id: r.ID, Values: &values, Metadata: md})
		}

		err := i.call(ctx, "upsert", func(ctx context.Context) error {
			_, err := i.conn.UpsertVectors(ctx, vectors)
			return err
		})
		if err != nil {
			return fmt.Errorf("upserting vectors %d-%d: %w", start, end-1, err)
		}
		logger.Debug("pinecone: upserted %d vectors", end-start)
	}
	return nil
}

// Query returns up to topK matches with metadata.
func (i *Index) Query(ctx context.Context, vec []float32, topK int) ([]domain.RetrievalMatch, error) {
	var resp *sdk.QueryVectorsResponse
	err := i.call(ctx, "query", func(ctx context.Context) error {
		var err error
		resp, err = i.conn.QueryByVectorValues(ctx, &sdk.QueryByVectorValuesRequest{
			Vector:          vec,
			TopK:            uint32(max(topK, 0)),
			IncludeMetadata: true,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	if resp == nil {
		return []domain.RetrievalMatch{}, nil
	}

	matches := make([]domain.RetrievalMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		matches = append(matches, domain.RetrievalMatch{
			ID:       m.Vector.Id,
			Score:    float64(m.Score),
			Metadata: fromStruct(m.Vector.Metadata),
		})
	}
	return matches, nil
}

// DeleteByFilename removes every vector whose file metadata equals filename.
func (i *Index) DeleteByFilename(ctx context.Context, filename string) error {
	filter, err := structpb.NewStruct(map[string]any{
		"file": map[string]any{"$eq": filename},
	})
	if err != nil {
		return fmt.Errorf("building filter: %w", err)
	}

	err = i.call(ctx, "delete", func(ctx context.Context) error {
		return i.conn.DeleteVectorsByFilter(ctx, filter)
	})
	if err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", filename, err)
	}
	return nil
}

// Dimension reads the index dimension from the index stats.
func (i *Index) Dimension(ctx context.Context) (int, error) {
	var stats *sdk.DescribeIndexStatsResponse
	err := i.call(ctx, "describe", func(ctx context.Context) error {
		var err error
		stats, err = i.conn.DescribeIndexStats(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("describing index: %w", err)
	}
	if stats == nil || stats.Dimension == nil {
		return 0, nil
	}
	return int(*stats.Dimension), nil
}

// Close closes the connection.
func (i *Index) Close() error {
	return i.conn.Close()
}

// retryable reports whether a failed call may succeed when repeated.
func retryable(err error) bool {
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable, codes.Aborted:
		return true
	}
	return false
}

// call runs fn under the rate limiter, retrying throttled and unavailable
// calls with linear backoff.
func (i *Index) call(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if err := i.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		if attempt == i.maxAttempts {
			break
		}

		wait := i.backoff * time.Duration(attempt)
		logger.Debug("pinecone: %s failed with %s, retrying in %s", op, status.Code(lastErr), wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if status.Code(lastErr) == codes.ResourceExhausted {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, lastErr)
	}
	return fmt.Errorf("%w: after %d attempts: %w", domain.ErrVectorIndexUnavailable, i.maxAttempts, lastErr)
}

// toStruct encodes chunk metadata as a Pinecone metadata struct.
// Tags are always present, as an empty list when the chunk has none.
func toStruct(md domain.ChunkMetadata) (*sdk.Metadata, error) {
	tags := make([]any, len(md.Tags))
	for i, t := range md.Tags {
		tags[i] = t
	}
	return structpb.NewStruct(map[string]any{
		"text":        md.Text,
		"title":       md.Title,
		"source":      md.Source,
		"tags":        tags,
		"file":        md.File,
		"chunkIndex":  md.ChunkIndex,
		"totalChunks": md.TotalChunks,
	})
}

// fromStruct decodes chunk metadata. Pinecone returns numbers as floats.
func fromStruct(md *sdk.Metadata) domain.ChunkMetadata {
	if md == nil {
		return domain.ChunkMetadata{}
	}
	fields := md.GetFields()

	var tags []string
	for _, v := range fields["tags"].GetListValue().GetValues() {
		tags = append(tags, v.GetStringValue())
	}

	return domain.ChunkMetadata{
		Text:        fields["text"].GetStringValue(),
		Title:       fields["title"].GetStringValue(),
		Source:      fields["source"].GetStringValue(),
		Tags:        tags,
		File:        fields["file"].GetStringValue(),
		ChunkIndex:  int(fields["chunkIndex"].GetNumberValue()),
		TotalChunks: int(fields["totalChunks"].GetNumberValue()),
	}
}
