package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoneadvisor/internal/model"
)

type searchLogEntry struct {
	query     string
	total     int
	resultIDs []string
}

type chanSearchLogger struct {
	entries chan searchLogEntry
}

func (l *chanSearchLogger) LogSearch(_ context.Context, query string, _ model.ParsedIntent, total int, resultIDs []string, _ int64) error {
	l.entries <- searchLogEntry{query: query, total: total, resultIDs: resultIDs}
	return nil
}

func newTestSearch(logger SearchLogger) *SearchService {
	return NewSearchService(fixtureCatalog(), NewIntentParser(testPatterns()), NewRanker(DefaultRankingConfig()), logger, nil)
}

func TestSearchService_Search(t *testing.T) {
	svc := newTestSearch(nil)

	tests := []struct {
		name      string
		req       model.SearchRequest
		wantIDs   []string
		wantTotal int
	}{
		{
			name:      "brand and budget",
			req:       model.SearchRequest{Query: "samsung under 20k"},
			wantIDs:   []string{"samsung-m14"},
			wantTotal: 1,
		},
		{
			name:      "limit caps results but not total",
			req:       model.SearchRequest{Query: "battery backup under 20k", Limit: 2},
			wantIDs:   []string{"moto-g54", "samsung-m14"},
			wantTotal: 3,
		},
		{
			name:      "no match",
			req:       model.SearchRequest{Query: "under 3k"},
			wantIDs:   []string{},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Search(context.Background(), &tt.req)
			require.NoError(t, err)

			ids := make([]string, len(resp.Results))
			for i, r := range resp.Results {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, resp.Total)
			require.NotNil(t, resp.Intent)
			assert.Equal(t, tt.req.Query, resp.Intent.Raw)
		})
	}
}

func TestSearchService_ResultFormatting(t *testing.T) {
	svc := newTestSearch(nil)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{Query: "samsung under 20k"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	r := resp.Results[0]
	assert.Equal(t, "Samsung Galaxy M14 5G", r.Title)
	assert.Equal(t, "₹13,990", r.Price)
	assert.Equal(t, roundScore(r.Score), r.Score)
	assert.Contains(t, r.Reasons, ReasonWithinBudget)
}

func TestSearchService_DefaultLimit(t *testing.T) {
	svc := newTestSearch(nil)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{Query: "android"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, DefaultCandidateLimit)
	assert.Equal(t, 6, resp.Total)

	resp, err = svc.Search(context.Background(), &model.SearchRequest{Query: "android", Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 6)
}

func TestSearchService_EmptyQuery(t *testing.T) {
	svc := newTestSearch(nil)

	_, err := svc.Search(context.Background(), &model.SearchRequest{Query: "   "})
	require.Error(t, err)
	assert.Equal(t, ErrorInvalidInput, CodeOf(err))
}

func TestSearchService_LogsSearches(t *testing.T) {
	logger := &chanSearchLogger{entries: make(chan searchLogEntry, 1)}
	svc := newTestSearch(logger)

	_, err := svc.Search(context.Background(), &model.SearchRequest{Query: "  samsung under 20k "})
	require.NoError(t, err)

	select {
	case got := <-logger.entries:
		assert.Equal(t, searchLogEntry{query: "samsung under 20k", total: 1, resultIDs: []string{"samsung-m14"}}, got)
	case <-time.After(time.Second):
		t.Fatal("search was not logged")
	}
}

func TestSearchService_Phones(t *testing.T) {
	svc := newTestSearch(nil)

	assert.Equal(t, fixturePhones(), svc.ListPhones())

	p, err := svc.GetPhone("pixel-8a")
	require.NoError(t, err)
	assert.Equal(t, "Pixel 8a", p.Model)

	_, err = svc.GetPhone("nokia-3310")
	assert.Equal(t, ErrorNotFound, CodeOf(err))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 12.35, roundScore(12.3456))
	assert.Equal(t, 0.0, roundScore(0))
}
