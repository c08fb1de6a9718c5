package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

const maxSearchLimit = 50

// SearchLogger persists deterministic search queries for offline analysis
type SearchLogger interface {
	LogSearch(ctx context.Context, query string, intent model.ParsedIntent, total int, resultIDs []string, tookMs int64) error
}

// SearchService ranks the catalog for a query without any model involvement
type SearchService struct {
	catalog PhoneCatalog
	intent  *IntentParser
	ranker  *Ranker
	logger  SearchLogger
	log     *zap.Logger
}

// NewSearchService creates a new search service. searchLogger may be nil.
func NewSearchService(
	catalog PhoneCatalog,
	intentParser *IntentParser,
	ranker *Ranker,
	searchLogger SearchLogger,
	log *zap.Logger,
) *SearchService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchService{
		catalog: catalog,
		intent:  intentParser,
		ranker:  ranker,
		logger:  searchLogger,
		log:     log,
	}
}

// Search parses the query, filters and ranks the catalog, and presents the top results
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	startTime := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, newError(ErrorInvalidInput, "empty_query", nil)
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = DefaultCandidateLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	intent := s.intent.Parse(query)
	all := s.catalog.All()
	total := len(FilterPhones(all, intent))
	ranked := s.ranker.Rank(all, intent, limit)

	results := make([]model.SearchResult, len(ranked))
	for i, r := range ranked {
		results[i] = model.SearchResult{
			ID:      r.Phone.ID,
			Title:   r.Phone.Title(),
			Price:   utils.FormatINR(r.Phone.Price),
			Score:   roundScore(r.Score),
			Reasons: r.Reasons,
		}
	}

	took := time.Since(startTime).Milliseconds()

	// Log search (non-blocking)
	if s.logger != nil {
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			if err := s.logger.LogSearch(ctx, query, intent, total, ids, took); err != nil {
				s.log.Warn("failed to log search", zap.Error(err))
			}
		}()
	}

	return &model.SearchResponse{
		Results: results,
		Total:   total,
		Intent:  &intent,
		Took:    took,
	}, nil
}

// ListPhones returns the whole catalog in load order
func (s *SearchService) ListPhones() []model.Phone {
	return s.catalog.All()
}

// GetPhone retrieves a single catalog item by id
func (s *SearchService) GetPhone(id string) (model.Phone, error) {
	p, ok := s.catalog.Get(id)
	if !ok {
		return model.Phone{}, newError(ErrorNotFound, "phone_not_found", nil)
	}
	return p, nil
}

// roundScore keeps two decimals for display
func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
