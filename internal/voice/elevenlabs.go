package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ElevenLabsConfig configures the speech-to-text client.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
}

// ElevenLabsTranscriber uploads a recorded file to the ElevenLabs
// speech-to-text endpoint and returns the transcript text.
type ElevenLabsTranscriber struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

func NewElevenLabsTranscriber(cfg ElevenLabsConfig) *ElevenLabsTranscriber {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "scribe_v1"
	}
	return &ElevenLabsTranscriber{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (t *ElevenLabsTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return "", fmt.Errorf("ELEVENLABS_API_KEY is not set")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fileWriter, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fileWriter.Write(data); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	fields := map[string]string{
		"model_id":         t.cfg.ModelID,
		"language_code":    "eng",
		"tag_audio_events": "true",
		"diarize":          "true",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	u := strings.TrimRight(t.cfg.BaseURL, "/") + "/v1/speech-to-text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", t.cfg.APIKey)

	res, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transcription request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("transcription provider status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}
