package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// VisionConfig configures the image-capable chat path.
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// VisionClient answers a question about a captured image by sending the
// question text together with the image as a base64 data URL.
type VisionClient struct {
	cfg    VisionConfig
	client *openai.Client
}

func NewVisionClient(cfg VisionConfig) *VisionClient {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &VisionClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (c *VisionClient) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *VisionClient) Describe(ctx context.Context, imagePath, question string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("OPENAI_API_KEY is not set")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", imageMIME(imagePath), base64.StdEncoding.EncodeToString(data))

	if strings.TrimSpace(question) == "" {
		question = "What do you see in this image?"
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: question,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
		MaxTokens: 1000,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
