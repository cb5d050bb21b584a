package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// Resource URIs.
const (
	SourcesURI    = "amanrag://sources"
	QueryStatsURI = "amanrag://query_stats"
)

// queryStatsLimit bounds the term and unanswered lists of query_stats.
const queryStatsLimit = 20

// registerResources registers the sources resource and, when a query log is
// configured, query_stats.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "sources",
			URI:         SourcesURI,
			Description: "Indexed sources with passage counts and tags",
			MIMEType:    "application/json",
		},
		s.sourcesHandler,
	)

	if s.queryLog != nil {
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        "query_stats",
				URI:         QueryStatsURI,
				Description: "Frequent query terms, unanswered questions and daily query counts",
				MIMEType:    "application/json",
			},
			s.queryStatsHandler,
		)
	}
}

func (s *Server) sourcesHandler(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sources, err := s.index.Sources(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	if sources == nil {
		sources = []store.SourceInfo{}
	}
	return jsonResource(SourcesURI, map[string]any{"sources": sources})
}

func (s *Server) queryStatsHandler(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if s.queryLog == nil {
		return nil, MapError(ErrQueryLogDisabled)
	}
	stats, err := s.queryLog.Stats(ctx, queryStatsLimit)
	if err != nil {
		return nil, MapError(err)
	}
	return jsonResource(QueryStatsURI, stats)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(content)},
		},
	}, nil
}
