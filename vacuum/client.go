package vacuum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client speaks the vacuum's Valetudo-style REST control surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("vacuum GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(resp, result)
}

func (c *Client) put(path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vacuum marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPut, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("vacuum PUT %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vacuum PUT %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(resp, result)
}

func (c *Client) decode(resp *http.Response, result any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("vacuum read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("vacuum HTTP %d: %s", resp.StatusCode, string(data))
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("vacuum decode: %w", err)
		}
	}
	return nil
}

func (c *Client) getRaw(path string) ([]byte, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("vacuum GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vacuum read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("vacuum HTTP %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// Reconfigure updates the client's base URL and timeout for hot-reload.
func (c *Client) Reconfigure(baseURL string, timeout time.Duration) {
	c.baseURL = baseURL
	c.httpClient.Timeout = timeout
}
