package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// maxToolOutput caps how much content a built-in tool returns.
const maxToolOutput = 64 * 1024

// Standard returns a registry with the built-in verification tools used
// by the fact-checking pass: local file reads and HTTP fetches.
func Standard() *Registry {
	r := NewRegistry()
	mustRegister(r, Schema{
		Name:        "read_file",
		Description: "Read a local file and return its contents",
		Parameters: map[string]Param{
			"path": {Type: "string", Description: "Path of the file to read"},
		},
		Required: []string{"path"},
	}, readFile)
	mustRegister(r, Schema{
		Name:        "http_get",
		Description: "Fetch a URL over HTTP GET and return the response body",
		Parameters: map[string]Param{
			"url": {Type: "string", Description: "URL to fetch"},
		},
		Required: []string{"url"},
	}, httpGet)
	return r
}

func mustRegister(r *Registry, schema Schema, fn Func) {
	if err := r.Register(schema, fn); err != nil {
		panic(err)
	}
}

func readFile(ctx context.Context, args map[string]any) (string, error) {
	path := args["path"].(string)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxToolOutput))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func httpGet(ctx context.Context, args map[string]any) (string, error) {
	url := args["url"].(string)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxToolOutput))
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", url, err)
	}
	return string(body), nil
}
