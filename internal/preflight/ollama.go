package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/llm"
)

// CheckEmbeddings checks that the embedding model can be served. Static
// embeddings always pass.
func (c *Checker) CheckEmbeddings(ctx context.Context, cfg config.EmbeddingsConfig) Result {
	result := Result{Name: "embeddings", Required: true}
	if embed.ProviderType(strings.ToLower(cfg.Provider)) == embed.ProviderStatic {
		result.Status = Pass
		result.Message = fmt.Sprintf("static (%d dims, offline)", cfg.Dimensions)
		return result
	}
	return c.checkModel(ctx, result, cfg.Host, cfg.Model)
}

// CheckLLM checks that the chat model is pulled. Retrieval works without it,
// so a failure only warns.
func (c *Checker) CheckLLM(ctx context.Context, cfg config.LLMConfig) Result {
	result := c.checkModel(ctx, Result{Name: "llm"}, cfg.Host, cfg.Model)
	if result.Status == Fail {
		result.Status = Warn
	}
	return result
}

func (c *Checker) checkModel(ctx context.Context, result Result, host, model string) Result {
	host = strings.TrimRight(host, "/")
	result.Details = host
	models, err := llm.NewModelCatalog(host, c.client).Models(ctx)
	if err != nil {
		result.Status = Fail
		result.Message = fmt.Sprintf("Ollama unreachable at %s", host)
		result.Details = fmt.Sprintf("%v; start it with 'ollama serve'", err)
		return result
	}
	if !llm.HasModel(models, model) {
		result.Status = Fail
		result.Message = fmt.Sprintf("model %s not pulled", model)
		result.Details = fmt.Sprintf("run 'ollama pull %s'", model)
		return result
	}
	result.Status = Pass
	result.Message = model
	return result
}
