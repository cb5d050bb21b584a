package cmd

import (
	"bytes"
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/llm"
)

// newProject creates an isolated project dir using offline embeddings.
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))

	dir := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := `embeddings:
  provider: static
  dimensions: 64
retrieval:
  expansion: false
paths:
  data_dir: ` + filepath.Join(root, "data") + `
  inbox_dir: ` + filepath.Join(root, "inbox") + `
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".amanrag.yaml"), []byte(yaml), 0o644))
	return dir
}

// run executes the root command against dir.
func run(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--dir", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

const animalsJSONL = `{"text": "Cats are small domesticated mammals that purr.", "source": "animals.pdf", "page": 1, "tags": ["pets"]}
{"text": "Dogs are loyal mammals that bark at strangers.", "source": "animals.pdf", "page": 2}

{"text": "Sparrows are small birds that build nests.", "source": "birds.txt"}
`

func writeJSONL(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passages.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// stubGenerator answers with fixed fragments and records prompts.
type stubGenerator struct {
	fragments []string
	prompts   []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return strings.Join(g.fragments, ""), nil
}

func (g *stubGenerator) GenerateStream(_ context.Context, prompt string, _ llm.GenerationParams) iter.Seq2[string, error] {
	g.prompts = append(g.prompts, prompt)
	return func(yield func(string, error) bool) {
		for _, f := range g.fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}
