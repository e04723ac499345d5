// Package httpapi exposes the device-facing HTTP surface: image and audio
// uploads, the pending-capture diagnostics, health, metrics, and a websocket
// activity feed.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skvn/glassd/internal/agent"
	"github.com/skvn/glassd/internal/capture"
	"github.com/skvn/glassd/internal/config"
	"github.com/skvn/glassd/internal/history"
	"github.com/skvn/glassd/internal/media"
	"github.com/skvn/glassd/internal/observability"
	"github.com/skvn/glassd/internal/voice"
)

// maxUploadBytes bounds a single device upload. The ESP32 camera tops out
// well below this.
const maxUploadBytes = 16 << 20

// VisionClient answers a question about a captured image.
type VisionClient interface {
	Describe(ctx context.Context, imagePath, question string) (string, error)
	Configured() bool
}

type Server struct {
	cfg         config.Config
	tracker     *capture.Tracker
	library     *media.Library
	transcriber voice.Transcriber
	synthesizer voice.Synthesizer
	agent       agent.Adapter
	vision      VisionClient
	store       history.Store
	metrics     *observability.Metrics
	hub         *eventHub
	speech      chan speechJob
	upgrader    websocket.Upgrader
}

// speechJob is one queued response waiting for the playback worker.
type speechJob struct {
	interactionID string
	text          string
}

func New(
	cfg config.Config,
	tracker *capture.Tracker,
	library *media.Library,
	transcriber voice.Transcriber,
	synthesizer voice.Synthesizer,
	agentClient agent.Adapter,
	vision VisionClient,
	store history.Store,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		cfg:         cfg,
		tracker:     tracker,
		library:     library,
		transcriber: transcriber,
		synthesizer: synthesizer,
		agent:       agentClient,
		vision:      vision,
		store:       store,
		metrics:     metrics,
		hub:         newEventHub(),
		speech:      make(chan speechJob, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
	go s.playbackLoop()
	return s
}

// Close stops the playback worker. Call only after in-flight requests have
// drained; queued speech that has not played yet is dropped.
func (s *Server) Close() {
	close(s.speech)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/events", s.handleEvents)

	r.Post("/upload_image", s.handleUploadImage)
	r.Post("/upload_raw", s.handleUploadRaw)
	r.Post("/clear_pending", s.handleClearPending)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "smart glass gateway is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.tracker.Status()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":                   true,
		"pending_image":             st.PendingImage,
		"timeout_seconds_remaining": st.RemainingSeconds,
		"stt_configured":            s.cfg.ElevenLabsAPIKey != "",
		"tts_configured":            s.cfg.DeepgramAPIKey != "",
		"vision_configured":         s.vision != nil && s.vision.Configured(),
		"agent_mode":                s.cfg.AgentMode,
		"history_store":             s.store.Mode(),
	})
}

func (s *Server) handleClearPending(w http.ResponseWriter, _ *http.Request) {
	s.tracker.Consume()
	s.hub.Publish("pending_cleared", "")
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "pending image cleared",
	})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "upload_read_failed", err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty_upload", "image body is empty")
		return
	}

	name := strings.TrimSpace(r.Header.Get("X-Filename"))
	if name == "" {
		name = s.library.GeneratedName("image", ".jpg")
	}
	path, err := s.library.SaveUpload(name, data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "upload_save_failed", err.Error())
		return
	}

	s.tracker.Record(path)
	s.metrics.Uploads.WithLabelValues("image").Inc()
	s.hub.Publish("image_uploaded", filepath.Base(path))

	st := s.tracker.Status()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":                   true,
		"path":                      path,
		"size":                      len(data),
		"waiting_for_audio":         true,
		"timeout_seconds_remaining": st.RemainingSeconds,
	})
}

func (s *Server) handleUploadRaw(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "upload_read_failed", err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty_upload", "audio body is empty")
		return
	}

	name := strings.TrimSpace(r.Header.Get("X-Filename"))
	if name == "" {
		name = s.library.GeneratedName("audio", ".wav")
	}
	audioPath, err := s.library.SaveUpload(name, data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "upload_save_failed", err.Error())
		return
	}
	s.metrics.Uploads.WithLabelValues("audio").Inc()
	s.hub.Publish("audio_uploaded", filepath.Base(audioPath))

	// A failed transcription degrades to an empty transcript: the device
	// gets a usable answer shape either way.
	start := time.Now()
	transcript, err := s.transcriber.Transcribe(r.Context(), audioPath)
	s.metrics.ObserveTranscription(time.Since(start))
	if err != nil {
		log.Printf("transcription failed: %v", err)
		s.metrics.ProviderErrors.WithLabelValues("elevenlabs", "transcribe").Inc()
		transcript = ""
	}
	if strings.TrimSpace(transcript) == "" {
		respondJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"transcription": "",
			"used_image":    false,
			"response":      "",
			"message":       "no transcription found",
		})
		return
	}

	// The image is claimed before the chat call and stays consumed even if
	// the call fails; a retry of the audio is a new utterance.
	imagePath, usedImage := s.tracker.Take()

	var responseText string
	if usedImage {
		start = time.Now()
		responseText, err = s.vision.Describe(r.Context(), imagePath, transcript)
		s.metrics.ObserveChat("vision", time.Since(start))
		if err != nil {
			s.metrics.ProviderErrors.WithLabelValues("openai", "vision").Inc()
			respondError(w, http.StatusInternalServerError, "vision_failed", err.Error())
			return
		}
	} else {
		recent, herr := s.store.Recent(r.Context(), 5)
		if herr != nil {
			log.Printf("history lookup failed: %v", herr)
		}
		req := agent.QueryRequest{Input: transcript, Context: contextLines(recent)}
		start = time.Now()
		res, aerr := s.agent.StreamQuery(r.Context(), req, nil)
		s.metrics.ObserveChat("agent", time.Since(start))
		if aerr != nil {
			if errors.Is(aerr, agent.ErrNotReady) {
				s.metrics.ProviderErrors.WithLabelValues("agent", "not_ready").Inc()
				respondError(w, http.StatusInternalServerError, "agent_not_ready", aerr.Error())
				return
			}
			s.metrics.ProviderErrors.WithLabelValues("agent", "query").Inc()
			respondError(w, http.StatusInternalServerError, "agent_failed", aerr.Error())
			return
		}
		responseText = res.Text
	}

	rec := history.Interaction{
		ID:           uuid.NewString(),
		Transcript:   transcript,
		ResponseText: responseText,
		ImagePath:    imagePath,
		UsedVision:   usedImage,
	}
	if err := s.store.SaveInteraction(r.Context(), rec); err != nil {
		log.Printf("save interaction failed: %v", err)
	}

	// Playback happens off the request path so the device is not held on
	// the line for the length of the spoken answer. A single worker drains
	// the queue, so responses play in the order they were produced.
	select {
	case s.speech <- speechJob{interactionID: rec.ID, text: responseText}:
	default:
		log.Printf("speech queue full, dropping response for interaction %s", rec.ID)
		s.hub.Publish("speech_dropped", rec.ID)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"transcription": transcript,
		"used_image":    usedImage,
		"response":      responseText,
	})
}

// playbackLoop is the single playback worker: it drains the speech queue in
// FIFO order until Close.
func (s *Server) playbackLoop() {
	for job := range s.speech {
		s.speak(job.interactionID, job.text)
	}
}

// speak synthesizes and plays one queued response. Failures are logged and
// published on the event feed; nothing here may take the worker down.
func (s *Server) speak(interactionID, text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("speech playback panicked: %v", rec)
		}
	}()

	audioPath, err := s.synthesizer.Speak(context.Background(), text)
	if err != nil {
		log.Printf("speech playback failed: %v", err)
		s.metrics.ProviderErrors.WithLabelValues("deepgram", "speak").Inc()
		s.hub.Publish("speech_failed", err.Error())
		return
	}
	if audioPath == "" {
		return
	}
	if interactionID != "" {
		if err := s.store.SetAudioPath(context.Background(), interactionID, audioPath); err != nil {
			log.Printf("record audio path failed: %v", err)
		}
	}
	s.hub.Publish("speech_played", filepath.Base(audioPath))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.hub.Subscribe()
	s.metrics.EventClients.Set(float64(s.hub.ClientCount()))
	defer func() {
		// Unsubscribe before re-reading the count so the gauge reflects
		// the departure.
		s.hub.Unsubscribe(ch)
		s.metrics.EventClients.Set(float64(s.hub.ClientCount()))
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain the client side so closes are noticed promptly.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

// contextLines flattens recent interactions into prompt context lines.
func contextLines(items []history.Interaction) []string {
	var lines []string
	for _, it := range items {
		if strings.TrimSpace(it.Transcript) != "" {
			lines = append(lines, "user: "+it.Transcript)
		}
		if strings.TrimSpace(it.ResponseText) != "" {
			lines = append(lines, "assistant: "+it.ResponseText)
		}
	}
	return lines
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Success: false, Error: message, Code: code})
}
