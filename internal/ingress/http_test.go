package ingress

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/media"
	"github.com/soniclint/soniclint/internal/notify"
	"github.com/soniclint/soniclint/internal/observe"
	"github.com/soniclint/soniclint/internal/segment"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	mgr := segment.NewManager(config.Default().Segmentation, notify.NewBus(), nil, media.NewMemoryStore(), metrics)

	mux := http.NewServeMux()
	NewServer(mgr).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func createStream(t *testing.T, srv *httptest.Server, body string) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/streams", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/streams: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var out struct {
		StreamID string `json:"stream_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if out.StreamID == "" {
		t.Fatal("create response has empty stream_id")
	}
	return out.StreamID
}

// pcm16Chunk encodes n little-endian int16 samples as base64.
func pcm16Chunk(n int) string {
	buf := new(bytes.Buffer)
	for i := 0; i < n; i++ {
		binary.Write(buf, binary.LittleEndian, int16(1000*(i%3-1)))
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestServer_CreateFeedClose(t *testing.T) {
	srv := newTestServer(t)
	id := createStream(t, srv, `{"bus_name":"combat_dialogue","sample_rate":48000,"speaker_id":"npc-1"}`)

	feedBody, _ := json.Marshal(map[string]any{
		"pcm16":        pcm16Chunk(480),
		"game_context": map[string]any{"scene_id": "forest_01"},
	})
	resp, err := http.Post(srv.URL+"/v1/streams/"+id+"/feed", "application/json", bytes.NewReader(feedBody))
	if err != nil {
		t.Fatalf("POST feed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("feed status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/streams/"+id, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE stream: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("close status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// The stream is gone after close.
	resp, err = http.Post(srv.URL+"/v1/streams/"+id+"/feed", "application/json", bytes.NewReader(feedBody))
	if err != nil {
		t.Fatalf("POST feed after close: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("feed after close status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestServer_CreateStreamValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"bus_name":`, http.StatusBadRequest},
		{"missing sample rate", `{"bus_name":"music"}`, http.StatusBadRequest},
		{"negative sample rate", `{"bus_name":"music","sample_rate":-1}`, http.StatusBadRequest},
		{"valid", `{"bus_name":"music","sample_rate":44100}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/streams", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_FeedErrors(t *testing.T) {
	srv := newTestServer(t)
	id := createStream(t, srv, `{"bus_name":"ambient_forest","sample_rate":8000}`)

	tests := []struct {
		name   string
		stream string
		body   string
		want   int
	}{
		{"unknown stream", "no-such-stream", `{"pcm16":"` + pcm16Chunk(4) + `"}`, http.StatusNotFound},
		{"invalid json", id, `{"pcm16":`, http.StatusBadRequest},
		{"invalid base64", id, `{"pcm16":"not base64!!"}`, http.StatusBadRequest},
		{"valid", id, `{"pcm16":"` + pcm16Chunk(4) + `"}`, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/streams/"+tt.stream+"/feed", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_CloseUnknownStream(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/streams/ghost", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out["error"] == "" {
		t.Error("error body is empty")
	}
}
