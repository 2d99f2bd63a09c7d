// Package ingress exposes the stream front door over HTTP: create a stream
// for a named bus, feed it PCM16 telemetry chunks, and close it. The handlers
// are a thin transport shim over [segment.Manager]; engines embedding the
// pipeline in-process call the manager directly instead.
package ingress

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/soniclint/soniclint/internal/dsp"
	"github.com/soniclint/soniclint/internal/segment"
)

// Server maps the HTTP ingress routes onto a stream manager.
type Server struct {
	mgr segment.Ingress
}

// NewServer creates the ingress front door for mgr.
func NewServer(mgr segment.Ingress) *Server {
	return &Server{mgr: mgr}
}

// Register adds the ingress routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/streams", s.createStream)
	mux.HandleFunc("POST /v1/streams/{id}/feed", s.feed)
	mux.HandleFunc("DELETE /v1/streams/{id}", s.closeStream)
}

// createStreamRequest is the JSON body for stream creation. The metadata
// fields seed every segment cut from the stream; later game context updates
// overwrite them per feed.
type createStreamRequest struct {
	BusName    string `json:"bus_name"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`

	SpeakerID      string            `json:"speaker_id"`
	SpeakerRole    string            `json:"speaker_role"`
	ArchetypeID    string            `json:"archetype_id"`
	Language       string            `json:"language"`
	SceneID        string            `json:"scene_id"`
	ExperienceID   string            `json:"experience_id"`
	Environment    string            `json:"environment"`
	EffectsApplied bool              `json:"effects_applied"`
	Extra          map[string]string `json:"extra"`
}

type createStreamResponse struct {
	StreamID string `json:"stream_id"`
}

// feedRequest is the JSON body for a telemetry chunk: interleaved
// little-endian PCM16 samples, base64-encoded, plus an optional game context.
type feedRequest struct {
	PCM16       string         `json:"pcm16"`
	GameContext map[string]any `json:"game_context"`
}

// closeStreamRequest is the optional JSON body for stream close.
type closeStreamRequest struct {
	GameContext map[string]any `json:"game_context"`
}

func (s *Server) createStream(w http.ResponseWriter, r *http.Request) {
	var req createStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	meta := segment.Metadata{
		SpeakerID:      req.SpeakerID,
		SpeakerRole:    req.SpeakerRole,
		ArchetypeID:    req.ArchetypeID,
		Language:       req.Language,
		SceneID:        req.SceneID,
		ExperienceID:   req.ExperienceID,
		Environment:    req.Environment,
		EffectsApplied: req.EffectsApplied,
		Extra:          req.Extra,
	}
	id, err := s.mgr.CreateStream(r.Context(), req.BusName, req.SampleRate, req.Channels, req.BitDepth, meta)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, createStreamResponse{StreamID: id})
}

func (s *Server) feed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	pcm, err := base64.StdEncoding.DecodeString(req.PCM16)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 pcm16: "+err.Error())
		return
	}

	err = s.mgr.Feed(r.Context(), r.PathValue("id"), dsp.DecodePCM16(pcm), req.GameContext)
	if errors.Is(err, segment.ErrUnknownStream) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closeStream(w http.ResponseWriter, r *http.Request) {
	var req closeStreamRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
	}

	err := s.mgr.CloseStream(r.Context(), r.PathValue("id"), req.GameContext)
	if errors.Is(err, segment.ErrUnknownStream) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("ingress response write failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
