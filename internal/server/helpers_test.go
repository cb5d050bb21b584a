package server

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/answer"
	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/llm"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

// stubGenerator replays fixed fragments; expansion prompts get no variants.
type stubGenerator struct {
	fragments []string
	err       error

	mu      sync.Mutex
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	if strings.Contains(prompt, "search keywords") {
		return "", nil
	}
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return strings.Join(g.fragments, ""), nil
}

func (g *stubGenerator) GenerateStream(_ context.Context, prompt string, _ llm.GenerationParams) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		g.mu.Lock()
		g.prompts = append(g.prompts, prompt)
		g.mu.Unlock()
		for _, f := range g.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if g.err != nil {
			yield("", g.err)
		}
	}
}

type testServer struct {
	srv      *Server
	handler  http.Handler
	coord    *index.Coordinator
	metrics  *telemetry.Metrics
	queryLog *telemetry.QueryLog
}

// newTestServer wires the real index, retriever and assembler around gen.
func newTestServer(t *testing.T, gen *stubGenerator, opts ...Option) *testServer {
	t.Helper()

	passages, err := store.OpenPassageStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = passages.Close() })

	semantic, err := index.NewSemanticIndex(embed.NewStaticEmbedder(64), 0, 0)
	require.NoError(t, err)

	metrics := telemetry.New()
	coord, err := index.NewCoordinator(passages, store.NewLexicalIndex(store.DefaultBM25Config()), semantic,
		index.WithRecorder(metrics))
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })

	retriever, err := search.NewRetriever(coord.Lexical(), coord.Semantic(),
		search.WithExpander(search.NewQueryExpander(gen)),
		search.WithRecorder(metrics))
	require.NoError(t, err)

	assembler, err := answer.NewAssembler(retriever, gen, answer.WithRecorder(metrics))
	require.NoError(t, err)

	queryLog, err := telemetry.OpenQueryLog("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = queryLog.Close() })

	opts = append([]Option{WithMetrics(metrics), WithQueryLog(queryLog)}, opts...)
	srv, err := New(assembler, coord, Config{Defaults: answer.DefaultQueryOptions(), Version: "test"}, opts...)
	require.NoError(t, err)

	return &testServer{srv: srv, handler: srv.Router(), coord: coord, metrics: metrics, queryLog: queryLog}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seed(t *testing.T) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/passages", map[string]any{
		"passages": []map[string]any{
			{"text": "Cats are small mammals that purr.", "source": "animals.pdf", "page": 1, "tags": []string{"pets"}},
			{"text": "Dogs are loyal mammals that bark.", "source": "animals.pdf", "page": 2},
			{"text": "Sparrows are birds that build nests.", "source": "birds.txt"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	Event string
	Data  string
}

func parseSSE(body string) []sseEvent {
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var ev sseEvent
		var data []string
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = append(data, strings.TrimPrefix(line, "data: "))
			}
		}
		ev.Data = strings.Join(data, "\n")
		events = append(events, ev)
	}
	return events
}

// ollamaStub answers /api/tags with status and, on 200, the given models.
func ollamaStub(t *testing.T, status int, models ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		body := map[string][]map[string]string{"models": {}}
		for _, m := range models {
			body["models"] = append(body["models"], map[string]string{"name": m})
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
