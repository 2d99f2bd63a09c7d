package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/dsp"
	"github.com/soniclint/soniclint/internal/media"
	"github.com/soniclint/soniclint/internal/notify"
	"github.com/soniclint/soniclint/internal/observe"
	"github.com/soniclint/soniclint/internal/store"
)

// ErrUnknownStream is returned when Feed or CloseStream references a stream
// id that does not exist (never created, or already closed). Callers log and
// count it; it is never fatal.
var ErrUnknownStream = errors.New("segment: unknown stream")

// Ingress is the stream lifecycle surface consumed by transports and by
// engines embedding the pipeline in-process.
type Ingress interface {
	CreateStream(ctx context.Context, busName string, sampleRate, channels, bitDepth int, meta Metadata) (string, error)
	Feed(ctx context.Context, streamID string, samples []float64, gameContext map[string]any) error
	CloseStream(ctx context.Context, streamID string, gameContext map[string]any) error
}

// splitter cuts a drained buffer into clips. *Processor is the production
// implementation.
type splitter interface {
	Split(samples []float64, sampleRate int, t Type) []Clip
}

// Manager owns the stream lifecycle: it buffers incoming telemetry per
// stream, runs a segmentation pass when enough audio has accumulated or the
// stream closes, and hands each resulting segment to the collaborators
// (media store, segment store, notification publisher).
//
// All methods are safe for concurrent use across streams. Within one stream
// the caller is the single producer, matching the buffer ownership model.
type Manager struct {
	cfg      config.SegmentationConfig
	proc     splitter
	pub      notify.Publisher
	segments store.SegmentStore // nil disables relational persistence
	media    media.Store
	metrics  *observe.Metrics

	mu      sync.Mutex
	streams map[string]*stream
}

var _ Ingress = (*Manager)(nil)

// stream is the per-stream state. head tracks the absolute sample index of
// the buffer's first sample so segment timestamps survive buffer eviction.
type stream struct {
	mu         sync.Mutex
	id         string
	busName    string
	sampleRate int
	channels   int
	bitDepth   int
	segType    Type
	buf        *StreamBuffer
	base       Metadata
	created    time.Time
	head       int64
}

// NewManager wires a stream manager to its collaborators. segments may be
// nil when relational persistence is disabled.
func NewManager(cfg config.SegmentationConfig, pub notify.Publisher, segments store.SegmentStore, mediaStore media.Store, metrics *observe.Metrics) *Manager {
	return &Manager{
		cfg:      cfg,
		proc:     NewProcessor(cfg),
		pub:      pub,
		segments: segments,
		media:    mediaStore,
		metrics:  metrics,
		streams:  make(map[string]*stream),
	}
}

// CreateStream registers a new telemetry stream for the given bus and
// returns its id. The segmentation strategy is resolved from the bus name
// here, once, not re-matched per flush.
func (m *Manager) CreateStream(ctx context.Context, busName string, sampleRate, channels, bitDepth int, meta Metadata) (string, error) {
	if sampleRate <= 0 {
		return "", fmt.Errorf("segment: create stream: sample rate %d must be positive", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}

	meta.BusName = busName
	st := &stream{
		id:         uuid.NewString(),
		busName:    busName,
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		segType:    ResolveType(busName),
		buf:        NewStreamBuffer(sampleRate, m.cfg.MaxBufferedSeconds),
		base:       meta.Clone(),
		created:    time.Now(),
	}

	m.mu.Lock()
	m.streams[st.id] = st
	m.mu.Unlock()

	m.metrics.ActiveStreams.Add(ctx, 1)
	slog.Debug("stream created",
		"stream_id", st.id,
		"bus", busName,
		"segment_type", string(st.segType),
		"sample_rate", sampleRate,
	)
	return st.id, nil
}

// Feed appends interleaved samples to the stream's buffer, downmixing to
// mono. When the buffered duration reaches the flush threshold, one
// segmentation pass runs over the full buffer with the supplied game
// context.
func (m *Manager) Feed(ctx context.Context, streamID string, samples []float64, gameContext map[string]any) error {
	st, err := m.lookup(ctx, streamID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	mono := dsp.DownmixMono(samples, st.channels)
	st.head += int64(st.buf.Add(mono))

	if st.buf.Duration() >= time.Duration(m.cfg.FlushSeconds*float64(time.Second)) {
		m.flush(ctx, st, gameContext)
	}
	return nil
}

// CloseStream runs a final segmentation pass over any buffered tail and
// discards the stream.
func (m *Manager) CloseStream(ctx context.Context, streamID string, gameContext map[string]any) error {
	st, err := m.lookup(ctx, streamID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	m.flush(ctx, st, gameContext)
	st.mu.Unlock()

	m.mu.Lock()
	delete(m.streams, streamID)
	m.mu.Unlock()

	m.metrics.ActiveStreams.Add(ctx, -1)
	slog.Debug("stream closed", "stream_id", streamID)
	return nil
}

// lookup resolves a stream id, counting unknown-stream references.
func (m *Manager) lookup(ctx context.Context, streamID string) (*stream, error) {
	m.mu.Lock()
	st, ok := m.streams[streamID]
	m.mu.Unlock()
	if !ok {
		m.metrics.RecordPipelineError(ctx, "unknown_stream")
		slog.Warn("reference to unknown stream", "stream_id", streamID)
		return nil, ErrUnknownStream
	}
	return st, nil
}

// flush drains the stream buffer, cuts it into segments, and emits each one.
// A failure inside segmentation clears the buffer so poisoned data is not
// reprocessed on the next flush. Must be called with st.mu held.
func (m *Manager) flush(ctx context.Context, st *stream, gameContext map[string]any) {
	buffered := st.buf.Drain()
	if len(buffered) == 0 {
		return
	}

	ctx, span := observe.StartSpan(ctx, "segment.flush",
		trace.WithAttributes(
			attribute.String("stream_id", st.id),
			attribute.String("bus", st.busName),
			attribute.Int("buffered_samples", len(buffered)),
		))
	defer span.End()

	clips, err := m.split(buffered, st)
	if err != nil {
		m.metrics.RecordPipelineError(ctx, "segmentation")
		slog.Error("segmentation failed; clearing stream buffer",
			"stream_id", st.id, "bus", st.busName, "err", err)
		st.buf.Clear()
		st.head += int64(len(buffered))
		return
	}

	for _, clip := range clips {
		m.emit(ctx, st, clip, gameContext)
	}

	st.buf.Clear()
	st.head += int64(len(buffered))
}

// split runs the segmentation pass under a panic boundary so a single bad
// buffer cannot take down the producer.
func (m *Manager) split(buffered []float64, st *stream) (clips []Clip, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("segment: segmentation panic: %v", r)
		}
	}()

	started := time.Now()
	clips = m.proc.Split(buffered, st.sampleRate, st.segType)
	m.metrics.SegmentationDuration.Record(context.Background(), time.Since(started).Seconds())
	return clips, nil
}

// emit builds one Segment from a clip, enriches it with the game context,
// writes the media blob and the facts row, and publishes the segment-created
// notification. Storage failures are logged and counted, never propagated to
// the feeding caller.
func (m *Manager) emit(ctx context.Context, st *stream, clip Clip, gameContext map[string]any) {
	startOffset := time.Duration(float64(st.head+int64(clip.Offset)) / float64(st.sampleRate) * float64(time.Second))
	seg := &Segment{
		ID:         uuid.NewString(),
		Type:       st.segType,
		Samples:    clip.Samples,
		SampleRate: st.sampleRate,
		Channels:   st.channels,
		BitDepth:   st.bitDepth,
		Start:      st.created.Add(startOffset),
		Metadata:   st.base.Clone(),
	}
	seg.End = seg.Start.Add(seg.Duration())
	seg.Enrich(gameContext)

	mediaRef := "clips/" + seg.ID
	if err := m.media.Put(ctx, mediaRef, media.Clip{Samples: seg.Samples, SampleRate: seg.SampleRate}); err != nil {
		m.metrics.RecordPipelineError(ctx, "storage")
		slog.Error("media write failed; segment dropped", "segment_id", seg.ID, "err", err)
		return
	}

	if m.segments != nil {
		if err := m.segments.SaveSegment(ctx, segmentRow(seg, mediaRef)); err != nil {
			m.metrics.RecordPipelineError(ctx, "storage")
			slog.Error("segment row write failed", "segment_id", seg.ID, "err", err)
		}
	}

	if err := m.pub.PublishSegmentCreated(ctx, createdEvent(seg, mediaRef)); err != nil {
		m.metrics.RecordPipelineError(ctx, "storage")
		slog.Error("segment-created publish failed", "segment_id", seg.ID, "err", err)
		return
	}

	m.metrics.RecordSegmentProduced(ctx, string(seg.Type))
}

// segmentRow maps a segment to its persisted facts row.
func segmentRow(seg *Segment, mediaRef string) *store.SegmentRow {
	md := seg.Metadata
	return &store.SegmentRow{
		ID:             seg.ID,
		Type:           string(seg.Type),
		BusName:        md.BusName,
		SpeakerID:      md.SpeakerID,
		SpeakerRole:    md.SpeakerRole,
		ArchetypeID:    md.ArchetypeID,
		Language:       md.Language,
		SceneID:        md.SceneID,
		ExperienceID:   md.ExperienceID,
		LineID:         md.LineID,
		EmotionalTag:   md.EmotionalTag,
		Environment:    md.Environment,
		EffectsApplied: md.EffectsApplied,
		MediaRef:       mediaRef,
		SampleRate:     seg.SampleRate,
		BitDepth:       seg.BitDepth,
		Channels:       seg.Channels,
		Duration:       seg.Duration().Seconds(),
		Start:          seg.Start,
		End:            seg.End,
		Extra:          md.Extra,
	}
}

// createdEvent maps a segment to its segment-created notification.
func createdEvent(seg *Segment, mediaRef string) notify.SegmentCreated {
	md := seg.Metadata
	return notify.SegmentCreated{
		SegmentID:   seg.ID,
		SegmentType: string(seg.Type),
		Speaker: notify.SpeakerInfo{
			ID:          md.SpeakerID,
			Role:        md.SpeakerRole,
			ArchetypeID: md.ArchetypeID,
		},
		Language:       md.Language,
		LineID:         md.LineID,
		SceneID:        md.SceneID,
		ExperienceID:   md.ExperienceID,
		EmotionalTag:   md.EmotionalTag,
		Environment:    md.Environment,
		EffectsApplied: md.EffectsApplied,
		MediaRef:       mediaRef,
		SampleRate:     seg.SampleRate,
		BitDepth:       seg.BitDepth,
		Channels:       seg.Channels,
		Duration:       seg.Duration().Seconds(),
		BusName:        md.BusName,
		Start:          seg.Start,
		End:            seg.End,
		Extra:          md.Extra,
	}
}
