package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skvn/glassd/internal/audio"
	"github.com/skvn/glassd/internal/observability"
)

// DeepgramConfig configures the streaming speech synthesis client.
type DeepgramConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HistoryDir string
	Format     audio.Format
}

// DeepgramSynthesizer streams Deepgram /v1/speak audio into the playback
// device while buffering every byte, then persists the take as a
// timestamped WAV under the history directory.
//
// The output device is a single exclusive resource: Speak serializes whole
// playbacks, so two quick successive responses play back to back instead of
// interleaving writes on one device handle.
type DeepgramSynthesizer struct {
	cfg        DeepgramConfig
	httpClient *http.Client
	newDevice  audio.DeviceFactory
	metrics    *observability.Metrics

	playMu sync.Mutex
	now    func() time.Time
}

func NewDeepgramSynthesizer(cfg DeepgramConfig, newDevice audio.DeviceFactory, metrics *observability.Metrics) *DeepgramSynthesizer {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.deepgram.com/v1/speak"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "aura-2-thalia-en"
	}
	return &DeepgramSynthesizer{
		cfg:        cfg,
		httpClient: &http.Client{},
		newDevice:  newDevice,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (s *DeepgramSynthesizer) Speak(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return "", &SynthesisError{Message: "DEEPGRAM_API_KEY is not set"}
	}

	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse synthesis url: %w", err)
	}
	q := u.Query()
	q.Set("model", s.cfg.Model)
	q.Set("encoding", "linear16")
	// container=none yields bare PCM; the WAV container is written locally
	// so the saved file and the played stream stay byte-identical.
	q.Set("container", "none")
	q.Set("sample_rate", strconv.Itoa(s.cfg.Format.SampleRate))
	u.RawQuery = q.Encode()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	s.playMu.Lock()
	defer s.playMu.Unlock()

	res, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send synthesis request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &SynthesisError{StatusCode: res.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	pcm, frames, err := s.playStream(res.Body)
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.SynthesisBytes.Add(float64(len(pcm)))
		s.metrics.PlaybackFrames.Add(float64(frames))
	}

	// Trim the accumulator the same way the player trims its tail: an odd
	// trailing byte would corrupt the final sample of the saved file too.
	pcm = pcm[:len(pcm)-len(pcm)%s.cfg.Format.BlockAlign()]
	if err := os.MkdirAll(s.cfg.HistoryDir, 0o755); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}
	path := filepath.Join(s.cfg.HistoryDir, s.now().Format("2006-01-02_15-04-05")+".wav")
	if err := audio.WriteWAVFile(path, pcm, s.cfg.Format.SampleRate, s.cfg.Format.Channels); err != nil {
		return "", fmt.Errorf("save synthesis audio: %w", err)
	}
	return path, nil
}

// playStream drives the response body through a freshly opened player,
// returning the accumulated raw bytes and the number of frames played.
// The device is released on every path out.
func (s *DeepgramSynthesizer) playStream(body io.Reader) ([]byte, int64, error) {
	player, err := audio.NewPlayer(s.newDevice(), s.cfg.Format)
	if err != nil {
		return nil, 0, err
	}
	defer player.Close()

	var pcm []byte
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			pcm = append(pcm, buf[:n]...)
			if perr := player.Push(buf[:n]); perr != nil {
				return nil, 0, perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read synthesis stream: %w", err)
		}
	}
	if err := player.Flush(); err != nil {
		return nil, 0, err
	}
	return pcm, player.FramesWritten(), nil
}
