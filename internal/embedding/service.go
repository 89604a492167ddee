package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/models"
)

// Options controls batching, throttling and caching of embedding requests
type Options struct {
	Dim               int
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64 // 0 disables throttling
	UseDescription    bool
	ReuseCache        bool
}

// DefaultOptions matches the text-embedding-3-small default width
func DefaultOptions() Options {
	return Options{
		Dim:               1536,
		BatchSize:         64,
		Concurrency:       4,
		RequestsPerSecond: 5,
		UseDescription:    true,
		ReuseCache:        true,
	}
}

// Service embeds item texts into a feature tensor aligned to item ids
type Service struct {
	embedder Embedder
	cache    Cache // may be nil
	opts     Options
	limiter  *rate.Limiter
	logger   logrus.FieldLogger
}

// NewService wires an embedder with an optional cache
func NewService(embedder Embedder, cache Cache, opts Options, logger logrus.FieldLogger) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if opts.Dim <= 0 {
		return nil, fmt.Errorf("embedding dim must be positive, got %d", opts.Dim)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}

	s := &Service{embedder: embedder, cache: cache, opts: opts, logger: logger}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return s, nil
}

// EncodeItems embeds the text of every item in id order. Row i of the
// result belongs to item id i.
func (s *Service) EncodeItems(ctx context.Context, catalog *models.Catalog, items *graph.EntityMap) (graph.Tensor, error) {
	return s.EncodeTexts(ctx, ItemTexts(catalog, items, s.opts.UseDescription))
}

// EncodeTexts embeds texts into a len(texts) x Dim tensor. Empty texts map
// to zero rows and identical texts are requested once.
func (s *Service) EncodeTexts(ctx context.Context, texts []string) (graph.Tensor, error) {
	out := graph.NewTensor(len(texts), s.opts.Dim)

	// unique non-empty text -> rows that use it
	rows := make(map[string][]int)
	var unique []string
	for i, t := range texts {
		if t == "" {
			continue
		}
		if _, seen := rows[t]; !seen {
			unique = append(unique, t)
		}
		rows[t] = append(rows[t], i)
	}

	vectors := make(map[string][]float32, len(unique))
	pending, err := s.fromCache(ctx, unique, vectors)
	if err != nil {
		return graph.Tensor{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"texts":   len(texts),
		"unique":  len(unique),
		"cached":  len(unique) - len(pending),
		"pending": len(pending),
		"model":   s.embedder.Model(),
	}).Info("Embedding texts")

	if err := s.fetch(ctx, pending, vectors); err != nil {
		return graph.Tensor{}, err
	}

	for t, idx := range rows {
		for _, i := range idx {
			out.SetRow(i, vectors[t])
		}
	}
	return out, nil
}

func (s *Service) fromCache(ctx context.Context, texts []string, into map[string][]float32) ([]string, error) {
	if s.cache == nil || !s.opts.ReuseCache {
		return texts, nil
	}
	model := s.embedder.Model()
	var pending []string
	for _, t := range texts {
		vec, ok, err := s.cache.Get(ctx, CacheKey(model, t))
		if err != nil {
			return nil, fmt.Errorf("embedding cache lookup: %w", err)
		}
		if ok && len(vec) == s.opts.Dim {
			into[t] = vec
			continue
		}
		pending = append(pending, t)
	}
	return pending, nil
}

func (s *Service) fetch(ctx context.Context, texts []string, into map[string][]float32) error {
	if len(texts) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	model := s.embedder.Model()
	for start := 0; start < len(texts); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			vecs, err := s.embedder.Embed(gctx, batch)
			if err != nil {
				return fmt.Errorf("embed batch of %d: %w", len(batch), err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
			}
			for i, v := range vecs {
				if len(v) != s.opts.Dim {
					return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(v), s.opts.Dim)
				}
				if s.cache != nil {
					if err := s.cache.Put(gctx, CacheKey(model, batch[i]), v); err != nil {
						s.logger.WithError(err).Warn("Failed to cache embedding")
					}
				}
			}

			mu.Lock()
			for i, v := range vecs {
				into[batch[i]] = v
			}
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}
