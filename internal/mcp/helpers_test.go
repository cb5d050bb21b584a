package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

type fakeEngine struct {
	mu       sync.Mutex
	lastOpts answer.QueryOptions
	answer   *answer.Answer
	err      error
}

func (f *fakeEngine) Query(_ context.Context, _ string, opts answer.QueryOptions) (*answer.Answer, error) {
	f.mu.Lock()
	f.lastOpts = opts
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type fakeRetriever struct {
	lastOpts search.Options
	results  []search.FusedResult
	err      error
}

func (f *fakeRetriever) Retrieve(_ context.Context, question string, opts search.Options) (*search.Retrieval, error) {
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &search.Retrieval{Mode: opts.Mode, Queries: []string{question}, Results: f.results}, nil
}

type fakeIndex struct {
	status  *index.Status
	sources []store.SourceInfo
	err     error
}

func (f *fakeIndex) Status(context.Context) (*index.Status, error) {
	return f.status, f.err
}

func (f *fakeIndex) Sources(context.Context) ([]store.SourceInfo, error) {
	return f.sources, f.err
}

type recordingLog struct {
	mu        sync.Mutex
	questions []string
	modes     []string
}

func (l *recordingLog) Record(_ context.Context, question, mode string, _ int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.questions = append(l.questions, question)
	l.modes = append(l.modes, mode)
	return nil
}

func (l *recordingLog) Stats(context.Context, int) (*telemetry.QueryStats, error) {
	return &telemetry.QueryStats{
		TopTerms:   []telemetry.TermCount{{Term: "cats", Count: 2}},
		Unanswered: []string{},
		Daily:      map[string]int64{},
	}, nil
}

func catAnswer() *answer.Answer {
	return &answer.Answer{
		Text: "Cats purr.",
		Mode: "hybrid",
		Provenance: answer.Provenance{
			Sources:      []string{"animals.pdf (Page 1)"},
			SourceScores: []answer.SourceScore{{Source: "animals.pdf (Page 1)", Score: 0.9}},
			QualityScore: 0.9,
		},
		Queries: []string{"Do cats purr?"},
	}
}

func catResults() []search.FusedResult {
	return []search.FusedResult{
		{Passage: store.NewPassage("Cats are small mammals that purr.", "animals.pdf").WithPage(1), LexicalNorm: 1, VectorNorm: 0.8, Fused: 0.9},
		{Passage: store.NewPassage("Sparrows build nests.", "birds.txt"), LexicalNorm: 0, VectorNorm: 0.2, Fused: 0.1},
	}
}

func defaultConfig() Config {
	return Config{Defaults: answer.DefaultQueryOptions(), Version: "test"}
}

func newTestServer(t *testing.T, engine Engine, retriever Retriever, idx Index, opts ...Option) *Server {
	t.Helper()
	srv, err := NewServer(engine, retriever, idx, defaultConfig(), opts...)
	require.NoError(t, err)
	return srv
}

// connect opens an in-memory client session to srv.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// structured decodes the structured content of a tool result into T.
func structured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

// toolError returns the error text of a failed call, whether the SDK reported
// it as a protocol error or as an error result.
func toolError(t *testing.T, res *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		return err.Error()
	}
	require.True(t, res.IsError, "expected tool error")
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}
