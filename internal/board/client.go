package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client implements External against the board's REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a REST client for the given base URL. The API key
// is optional; when set it is sent as a bearer token.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("board request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading board response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("board returned status %d for %s %s: %s", resp.StatusCode, method, path, string(respBody))
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing board response: %w", err)
		}
	}
	return nil
}

func (c *Client) ReadBoard(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.do(ctx, http.MethodGet, "/board/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ReadDocsIndex(ctx context.Context) ([]Doc, error) {
	var docs []Doc
	if err := c.do(ctx, http.MethodGet, "/docs", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) CreateItem(ctx context.Context, title, note string) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	payload := map[string]string{"title": title, "note": note}
	if err := c.do(ctx, http.MethodPost, "/board/items", payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) AppendNote(ctx context.Context, itemID, note string) error {
	payload := map[string]string{"note": note}
	return c.do(ctx, http.MethodPost, "/board/items/"+itemID+"/notes", payload, nil)
}

func (c *Client) MarkDone(ctx context.Context, itemID, note string) error {
	payload := map[string]string{"note": note}
	return c.do(ctx, http.MethodPost, "/board/items/"+itemID+"/done", payload, nil)
}

func (c *Client) CreateDoc(ctx context.Context, section, title, content string) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	payload := map[string]string{"section": section, "title": title, "content": content}
	if err := c.do(ctx, http.MethodPost, "/docs", payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) AppendDocSection(ctx context.Context, docID, heading, content string) error {
	payload := map[string]string{"heading": heading, "content": content}
	return c.do(ctx, http.MethodPost, "/docs/"+docID+"/sections", payload, nil)
}
