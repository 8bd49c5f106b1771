package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/config"
)

// Remote file states reported by the engine.
const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

// GenAIService is a typed HTTP client for the file-search engine. All state
// lives in the injected config; callers pass a context per call.
type GenAIService struct {
	config     *config.GenAIConfig
	httpClient *http.Client
}

type storeCreateRequest struct {
	DisplayName string `json:"displayName"`
}

type storeResource struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// RemoteFile is a file resource on the engine side. State starts at
// PROCESSING and settles at ACTIVE or FAILED.
type RemoteFile struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
	MimeType    string `json:"mimeType"`
	SizeBytes   string `json:"sizeBytes"`
	CreateTime  string `json:"createTime"`
	State       string `json:"state"`
	Error       struct {
		Message string `json:"message"`
	} `json:"error"`
}

type fileEnvelope struct {
	File RemoteFile `json:"file"`
}

type listFilesResponse struct {
	Files         []RemoteFile `json:"files"`
	NextPageToken string       `json:"nextPageToken"`
}

// GroundingChunk is one citation the engine attached to a response.
type GroundingChunk struct {
	RetrievedContext RetrievedContext `json:"retrievedContext"`
}

// RetrievedContext is the document fragment a citation points at.
type RetrievedContext struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URI   string `json:"uri"`
}

// QueryResult is the text of a generation plus its grounding metadata.
type QueryResult struct {
	Text            string
	GroundingChunks []GroundingChunk
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	FileSearch *fileSearchTool `json:"fileSearch,omitempty"`
}

type fileSearchTool struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []GroundingChunk `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func NewGenAIService(cfg *config.GenAIConfig) *GenAIService {
	return &GenAIService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (s *GenAIService) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.config.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", s.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *GenAIService) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &EngineError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
		}
		return &EngineError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
		}
	}
	return nil
}

// EngineError is a non-2xx reply from the engine.
type EngineError struct {
	StatusCode int
	Message    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("genai API error (status %d): %s", e.StatusCode, e.Message)
}

// CreateStore creates a file-search store and returns its resource name.
func (s *GenAIService) CreateStore(ctx context.Context, displayName string) (string, error) {
	req, err := s.newRequest(ctx, http.MethodPost, "/v1beta/fileSearchStores", storeCreateRequest{DisplayName: displayName})
	if err != nil {
		return "", err
	}

	var store storeResource
	if err := s.do(req, &store); err != nil {
		return "", err
	}
	return store.Name, nil
}

// UploadFile submits raw document bytes. The returned file usually starts in
// PROCESSING; callers poll GetFile until it settles.
func (s *GenAIService) UploadFile(ctx context.Context, filename, mimeType string, data []byte) (*RemoteFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(s.config.BaseURL, "/")+"/upload/v1beta/files", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", s.config.APIKey)
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", filename)

	var envelope fileEnvelope
	if err := s.do(req, &envelope); err != nil {
		return nil, err
	}
	if envelope.File.Name == "" {
		return nil, fmt.Errorf("upload accepted but no file resource returned")
	}
	return &envelope.File, nil
}

// GetFile fetches the current state of an uploaded file.
func (s *GenAIService) GetFile(ctx context.Context, name string) (*RemoteFile, error) {
	req, err := s.newRequest(ctx, http.MethodGet, "/v1beta/"+name, nil)
	if err != nil {
		return nil, err
	}

	var file RemoteFile
	if err := s.do(req, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ImportFile attaches an uploaded file resource to a store so it gets
// indexed for retrieval.
func (s *GenAIService) ImportFile(ctx context.Context, storeName, fileName string) error {
	req, err := s.newRequest(ctx, http.MethodPost, "/v1beta/"+storeName+":importFile",
		map[string]string{"fileName": fileName})
	if err != nil {
		return err
	}
	return s.do(req, nil)
}

// DeleteStore removes a store. A 404 is treated as success so cascade
// cleanup can proceed against an already-absent store.
func (s *GenAIService) DeleteStore(ctx context.Context, name string, force bool) error {
	path := "/v1beta/" + name
	if force {
		path += "?force=true"
	}
	req, err := s.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	err = s.do(req, nil)
	var engineErr *EngineError
	if errors.As(err, &engineErr) && engineErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

// ListFiles drains the paged file listing and returns all file metadata.
func (s *GenAIService) ListFiles(ctx context.Context, pageSize int) ([]RemoteFile, error) {
	var files []RemoteFile
	pageToken := ""

	for {
		path := fmt.Sprintf("/v1beta/files?pageSize=%d", pageSize)
		if pageToken != "" {
			path += "&pageToken=" + url.QueryEscape(pageToken)
		}
		req, err := s.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var page listFilesResponse
		if err := s.do(req, &page); err != nil {
			return nil, err
		}

		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// Query runs a generation with the file-search tool pinned to one store.
func (s *GenAIService) Query(ctx context.Context, storeName, prompt string) (*QueryResult, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		Tools: []tool{{
			FileSearch: &fileSearchTool{FileSearchStoreNames: []string{storeName}},
		}},
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/v1beta/models/"+s.config.Model+":generateContent", reqBody)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := s.do(req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("engine returned no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return &QueryResult{
		Text:            sb.String(),
		GroundingChunks: resp.Candidates[0].GroundingMetadata.GroundingChunks,
	}, nil
}

// SuggestCriteria asks the model for example evaluation criteria based on
// the indexed documents and extracts the JSON array from the reply. Errors
// and unparseable replies come back as an empty list.
func (s *GenAIService) SuggestCriteria(ctx context.Context, storeName string) ([]string, error) {
	const prompt = "Bạn được cung cấp các hồ sơ đề xuất của nhà thầu. Dựa trên nội dung, " +
		"hãy tạo 4 tiêu chí đánh giá ngắn gọn và thiết thực bằng tiếng Việt. " +
		"Trả về kết quả dưới dạng mảng JSON gồm các chuỗi, ví dụ: " +
		"```json[\"tiêu chí 1\", \"tiêu chí 2\"]```"

	result, err := s.Query(ctx, storeName, prompt)
	if err != nil {
		return nil, err
	}

	return extractJSONStrings(result.Text), nil
}

// extractJSONStrings pulls a JSON string array out of model output; fenced
// blocks take priority, then the first bracketed span.
func extractJSONStrings(text string) []string {
	jsonText := strings.TrimSpace(text)

	if start := strings.Index(jsonText, "```json"); start != -1 {
		rest := jsonText[start+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			jsonText = rest[:end]
		}
	} else if start := strings.Index(jsonText, "["); start != -1 {
		if end := strings.LastIndex(jsonText, "]"); end > start {
			jsonText = jsonText[start : end+1]
		}
	}
	jsonText = strings.TrimSpace(jsonText)

	var items []string
	if err := json.Unmarshal([]byte(jsonText), &items); err != nil {
		return nil
	}
	return items
}
