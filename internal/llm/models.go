package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aman-CERP/amanrag/pkg/version"
)

// ModelCatalog lists the models an Ollama server has pulled.
type ModelCatalog struct {
	host   string
	client *http.Client
}

// NewModelCatalog creates a catalog for host. A nil client gets a 3s timeout.
func NewModelCatalog(host string, client *http.Client) *ModelCatalog {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &ModelCatalog{host: strings.TrimRight(host, "/"), client: client}
}

// Host returns the server URL without a trailing slash.
func (c *ModelCatalog) Host() string {
	return c.host
}

// Models returns the pulled model names in server order.
func (c *ModelCatalog) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	names := make([]string, len(body.Models))
	for i, m := range body.Models {
		names[i] = m.Name
	}
	return names, nil
}

// Available reports whether the server answers the model list request.
func (c *ModelCatalog) Available(ctx context.Context) bool {
	_, err := c.Models(ctx)
	return err == nil
}

// HasModel matches exact names, or base names when either side omits the tag.
func HasModel(available []string, model string) bool {
	want := strings.ToLower(model)
	wantBase, _, wantTagged := strings.Cut(want, ":")
	for _, name := range available {
		got := strings.ToLower(name)
		if got == want {
			return true
		}
		gotBase, tag, _ := strings.Cut(got, ":")
		if gotBase == wantBase && (!wantTagged || tag == "") {
			return true
		}
	}
	return false
}
