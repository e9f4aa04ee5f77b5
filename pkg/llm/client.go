// Package llm 提供了调用大语言模型的客户端。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mediconnect/internal/config"
)

// Client 定义了 LLM 客户端的接口。
type Client interface {
	// GenerateJSON 以 JSON 输出模式调用模型，返回模型生成的原始 JSON 文本。
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	// Available 报告客户端是否具备调用条件（已配置 API Key）。
	Available() bool
}

type geminiClient struct {
	cfg    config.GeminiConfig
	gen    config.AIGenerationConfig
	client *http.Client
}

// NewClient 根据配置创建一个 Gemini 客户端。
func NewClient(cfg config.AIConfig) Client {
	return &geminiClient{
		cfg:    cfg.Gemini,
		gen:    cfg.Generation,
		client: &http.Client{},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Available 报告是否配置了 API Key。未配置时调用方应走本地启发式回退。
func (c *geminiClient) Available() bool {
	return c.cfg.APIKey != ""
}

// GenerateJSON 调用 Gemini generateContent 接口并要求 JSON 输出。
func (c *geminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
		},
	}
	if c.gen.Temperature != 0 {
		t := c.gen.Temperature
		reqBody.GenerationConfig.Temperature = &t
	}
	if c.gen.MaxTokens != 0 {
		m := c.gen.MaxTokens
		reqBody.GenerationConfig.MaxOutputTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call generate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generate api returned no candidates")
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
