// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result-size caps for code search. Snippets keep responses small enough to
// fold back into the LLM conversation.
const (
	maxSearchFiles    = 5
	maxMatchesPerFile = 3
	snippetContext    = 2 // lines of context either side of a match
)

// CodeRepoConfig configures access to the SQL/ETL code repository.
type CodeRepoConfig struct {
	// BaseURL is the REST API root, e.g. https://api.github.com.
	BaseURL string

	// Repo is the "owner/name" repository holding the pipeline SQL.
	Repo string

	// Token authenticates API calls; optional for public repos.
	Token string

	// Extension filters search to one file type. Default "sql".
	Extension string

	// Timeout bounds one API call. Default 30s.
	Timeout time.Duration
}

func (c *CodeRepoConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.github.com"
	}
	if c.Extension == "" {
		c.Extension = "sql"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// codeRepoClient is the shared HTTP client behind the three repository tools.
type codeRepoClient struct {
	cfg        CodeRepoConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func newCodeRepoClient(cfg CodeRepoConfig, logger *zap.Logger) *codeRepoClient {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &codeRepoClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// getJSON issues an authenticated GET and decodes the response into out.
// Failures come back as soft Results; a nil return means out is populated.
func (c *codeRepoClient) getJSON(ctx context.Context, apiPath string, out interface{}) *Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+apiPath, nil)
	if err != nil {
		return Errorf(ErrExecution, fmt.Sprintf("code repository: %v", err))
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Errorf(ErrTimeout, fmt.Sprintf("code repository timed out after %s", c.cfg.Timeout))
		}
		return Errorf(ErrTransport, fmt.Sprintf("code repository unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Errorf(ErrExecution, fmt.Sprintf("not found: %s", apiPath))
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Errorf(ErrTransport,
			fmt.Sprintf("code repository error (status %d): %s", resp.StatusCode, string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Errorf(ErrExecution, fmt.Sprintf("code repository: bad response: %v", err))
	}
	return nil
}

// fileContent fetches and decodes one file from the repository.
func (c *codeRepoClient) fileContent(ctx context.Context, filePath string) (string, *Result) {
	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	apiPath := fmt.Sprintf("/repos/%s/contents/%s", c.cfg.Repo, url.PathEscape(filePath))
	// PathEscape escapes slashes inside the path; GitHub accepts both forms
	// but unescaped directory separators are clearer in logs.
	apiPath = strings.ReplaceAll(apiPath, "%2F", "/")
	if res := c.getJSON(ctx, apiPath, &payload); res != nil {
		return "", res
	}
	if payload.Encoding != "base64" {
		return payload.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return "", Errorf(ErrExecution, fmt.Sprintf("decode %s: %v", filePath, err))
	}
	return string(decoded), nil
}

// CodeSearchTool searches the pipeline SQL for a term and returns bounded
// line-context snippets per matching file.
type CodeSearchTool struct {
	client *codeRepoClient
}

// NewCodeSearchTool creates the search_code tool.
func NewCodeSearchTool(cfg CodeRepoConfig, logger *zap.Logger) *CodeSearchTool {
	return &CodeSearchTool{client: newCodeRepoClient(cfg, logger)}
}

func (t *CodeSearchTool) Name() string { return "search_code" }

func (t *CodeSearchTool) Description() string {
	return "Search the ETL/pipeline SQL repository for a term. Returns matching files " +
		"with a few lines of context around each match."
}

func (t *CodeSearchTool) InputSchema() *JSONSchema {
	return ObjectSchema("search_code parameters", map[string]*JSONSchema{
		"query": StringSchema("Term to search for, e.g. a column or table name."),
	}, []string{"query"})
}

func (t *CodeSearchTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	query, _ := params["query"].(string)

	q := url.QueryEscape(fmt.Sprintf("%s repo:%s extension:%s", query, t.client.cfg.Repo, t.client.cfg.Extension))
	var search struct {
		TotalCount int `json:"total_count"`
		Items      []struct {
			Path string `json:"path"`
		} `json:"items"`
	}
	if res := t.client.getJSON(ctx, "/search/code?q="+q, &search); res != nil {
		return res, nil
	}

	type match struct {
		Line    int    `json:"line"`
		Context string `json:"context"`
	}
	type fileMatches struct {
		Path    string  `json:"path"`
		Matches []match `json:"matches"`
	}

	var files []fileMatches
	needle := strings.ToLower(query)
	for _, item := range search.Items {
		if len(files) >= maxSearchFiles {
			break
		}
		content, errRes := t.client.fileContent(ctx, item.Path)
		if errRes != nil {
			// One unreadable file never fails the search.
			t.client.logger.Debug("skipping unreadable file",
				zap.String("path", item.Path), zap.String("error", errRes.Error.Message))
			continue
		}
		lines := strings.Split(content, "\n")
		fm := fileMatches{Path: item.Path}
		for i, line := range lines {
			if len(fm.Matches) >= maxMatchesPerFile {
				break
			}
			if !strings.Contains(strings.ToLower(line), needle) {
				continue
			}
			start := i - snippetContext
			if start < 0 {
				start = 0
			}
			end := i + snippetContext + 1
			if end > len(lines) {
				end = len(lines)
			}
			fm.Matches = append(fm.Matches, match{
				Line:    i + 1,
				Context: strings.Join(lines[start:end], "\n"),
			})
		}
		if len(fm.Matches) > 0 {
			files = append(files, fm)
		}
	}

	return &Result{
		Data: map[string]interface{}{
			"query":       query,
			"total_count": search.TotalCount,
			"files":       files,
		},
	}, nil
}

// FileTool retrieves one file's full content with line numbers.
type FileTool struct {
	client *codeRepoClient
}

// NewFileTool creates the get_file tool.
func NewFileTool(cfg CodeRepoConfig, logger *zap.Logger) *FileTool {
	return &FileTool{client: newCodeRepoClient(cfg, logger)}
}

func (t *FileTool) Name() string { return "get_file" }

func (t *FileTool) Description() string {
	return "Retrieve the full content of one repository file, with line numbers."
}

func (t *FileTool) InputSchema() *JSONSchema {
	return ObjectSchema("get_file parameters", map[string]*JSONSchema{
		"path": StringSchema("Repository-relative file path."),
	}, []string{"path"})
}

func (t *FileTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	filePath, _ := params["path"].(string)
	content, errRes := t.client.fileContent(ctx, filePath)
	if errRes != nil {
		return errRes, nil
	}

	lines := strings.Split(content, "\n")
	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%4d  %s\n", i+1, line)
	}
	return &Result{
		Data: map[string]interface{}{
			"path":       filePath,
			"content":    sb.String(),
			"line_count": len(lines),
		},
	}, nil
}

// ListSQLFilesTool lists every SQL file in the repository, grouped by
// directory.
type ListSQLFilesTool struct {
	client *codeRepoClient
}

// NewListSQLFilesTool creates the list_sql_files tool.
func NewListSQLFilesTool(cfg CodeRepoConfig, logger *zap.Logger) *ListSQLFilesTool {
	return &ListSQLFilesTool{client: newCodeRepoClient(cfg, logger)}
}

func (t *ListSQLFilesTool) Name() string { return "list_sql_files" }

func (t *ListSQLFilesTool) Description() string {
	return "List all SQL files in the pipeline repository, grouped by directory."
}

func (t *ListSQLFilesTool) InputSchema() *JSONSchema {
	return ObjectSchema("list_sql_files parameters", map[string]*JSONSchema{}, nil)
}

func (t *ListSQLFilesTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	apiPath := fmt.Sprintf("/repos/%s/git/trees/HEAD?recursive=1", t.client.cfg.Repo)
	if res := t.client.getJSON(ctx, apiPath, &tree); res != nil {
		return res, nil
	}

	suffix := "." + t.client.cfg.Extension
	byDir := make(map[string][]string)
	total := 0
	for _, entry := range tree.Tree {
		if entry.Type != "blob" || !strings.HasSuffix(entry.Path, suffix) {
			continue
		}
		dir := path.Dir(entry.Path)
		byDir[dir] = append(byDir[dir], path.Base(entry.Path))
		total++
	}
	for _, names := range byDir {
		sort.Strings(names)
	}
	return &Result{
		Data: map[string]interface{}{
			"files_by_directory": byDir,
			"total_files":        total,
		},
	}, nil
}
