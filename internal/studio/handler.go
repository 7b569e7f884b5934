package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"segment-studio/internal/capture"
	"segment-studio/internal/media"
	"segment-studio/internal/platform/metrics"
	"segment-studio/internal/timeline"
)

const (
	maxJSONBytes   = 1 << 20
	maxChunkBytes  = 32 << 20
	maxUploadBytes = 64 << 20
)

// Handler exposes editor session HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts every session endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)

		r.Post("/device", h.AcquireDevice)
		r.Put("/settings", h.UpdateSettings)
		r.Post("/record/start", h.StartRecording)
		r.Post("/record/stop", h.StopRecording)
		r.Post("/timer/cancel", h.CancelTimer)
		r.Post("/undo", h.Undo)
		r.Post("/redo", h.Redo)
		r.Post("/overlay/toggle", h.ToggleOverlay)
		r.Post("/finalize", h.Finalize)
		r.Delete("/segments", h.Discard)
		r.Get("/segments/{segment_id}", h.GetSegment)
		r.Get("/overlay/frame", h.GetGhostFrame)

		r.Post("/ingest/chunks", h.PushChunk)
		r.Put("/ingest/frame", h.PutFrame)

		r.Get("/timeline", h.GetTimeline)
		r.Get("/timeline.m3u8", h.GetPlaylist)
		r.Post("/timeline/seek", h.Seek)
		r.Post("/timeline/play", h.Play)
		r.Post("/timeline/pause", h.Pause)
		r.Post("/timeline/time", h.TimeUpdate)
		r.Post("/timeline/ended", h.SegmentEnded)

		r.Get("/layers", h.GetLayers)
		r.Post("/layers/audio", h.AddAudioLayer)
		r.Patch("/layers/audio/{layer_id}", h.UpdateAudioLayer)
		r.Delete("/layers/audio/{layer_id}", h.RemoveAudioLayer)
		r.Post("/layers/text", h.AddTextLayer)
		r.Patch("/layers/text/{layer_id}", h.UpdateTextLayer)
		r.Delete("/layers/text/{layer_id}", h.RemoveTextLayer)

		r.Post("/publish", h.Publish)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateSession handles POST /sessions.
// Body (optional): { "facing": "user" }.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Facing string `json:"facing"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	facing := capture.FacingUser
	if body.Facing != "" {
		f, err := capture.ParseFacing(body.Facing)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidInput, err))
			return
		}
		facing = f
	}

	sess, err := h.svc.CreateSession(r.Context(), facing)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sess.View())
}

// GetSession handles GET /sessions/{session_id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, sess.View())
}

// DeleteSession handles DELETE /sessions/{session_id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(sessionID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcquireDevice handles POST /sessions/{session_id}/device.
// Body: { "facing": "environment" } or { "flip": true }.
func (h *Handler) AcquireDevice(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Facing string `json:"facing"`
		Flip   bool   `json:"flip"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	var err error
	switch {
	case body.Flip:
		err = sess.Capture.Flip(r.Context())
	default:
		facing := sess.Capture.Status().Facing
		if body.Facing != "" {
			if facing, err = capture.ParseFacing(body.Facing); err != nil {
				h.writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidInput, err))
				return
			}
		}
		err = sess.Capture.Acquire(r.Context(), facing)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.View())
}

// UpdateSettings handles PUT /sessions/{session_id}/settings.
// Body: { "speed": 0.5, "timer": 3 }; omitted fields are unchanged.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Speed *float64 `json:"speed"`
		Timer *int     `json:"timer"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Speed != nil {
		if err := sess.Capture.SetSpeed(*body.Speed); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if body.Timer != nil {
		if err := sess.Capture.SetTimer(*body.Timer); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, sess.View())
}

// StartRecording handles POST /sessions/{session_id}/record/start.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	h.captureAction(w, r, (*capture.Session).Start)
}

// StopRecording handles POST /sessions/{session_id}/record/stop.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	h.captureAction(w, r, (*capture.Session).Stop)
}

// CancelTimer handles POST /sessions/{session_id}/timer/cancel.
func (h *Handler) CancelTimer(w http.ResponseWriter, r *http.Request) {
	h.captureAction(w, r, (*capture.Session).CancelTimer)
}

// Undo handles POST /sessions/{session_id}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.captureAction(w, r, (*capture.Session).Undo)
}

// Redo handles POST /sessions/{session_id}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.captureAction(w, r, (*capture.Session).Redo)
}

// ToggleOverlay handles POST /sessions/{session_id}/overlay/toggle.
func (h *Handler) ToggleOverlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Capture.ToggleOverlay()
	h.writeJSON(w, http.StatusOK, sess.View())
}

func (h *Handler) captureAction(w http.ResponseWriter, r *http.Request, action func(*capture.Session) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := action(sess.Capture); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.View())
}

// Finalize handles POST /sessions/{session_id}/finalize and responds with
// the concatenated media of the active segments.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	data, err := sess.Capture.Finalize()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Discard handles DELETE /sessions/{session_id}/segments.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := h.svc.Discard(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, sess.View())
}

// GetSegment handles GET /sessions/{session_id}/segments/{segment_id}.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	seg, found := sess.Capture.Segment(chi.URLParam(r, "segment_id"))
	if !found {
		h.writeError(w, r, errSegmentNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(seg.Media)
}

// GetGhostFrame handles GET /sessions/{session_id}/overlay/frame: the last
// frame of the previous segment, used to line up the next shot.
func (h *Handler) GetGhostFrame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	frame := sess.Capture.Status().LastFrame
	if frame == nil {
		h.writeError(w, r, errNoGhostFrame)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(frame))
	w.WriteHeader(http.StatusOK)
	w.Write(frame)
}

// PushChunk handles POST /sessions/{session_id}/ingest/chunks. The body is
// one encoded media chunk. Chunks arriving outside a recording are dropped
// and answered with 204.
func (h *Handler) PushChunk(w http.ResponseWriter, r *http.Request) {
	stream, ok := h.ingestStream(w, r)
	if !ok {
		return
	}
	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBytes))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return
	}
	accepted, err := stream.Push(chunk)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !accepted {
		h.log.Debug("chunk dropped outside recording", slog.String("session_id", string(sessionID(r))))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PutFrame handles PUT /sessions/{session_id}/ingest/frame. The body is the
// current preview frame as JPEG or PNG.
func (h *Handler) PutFrame(w http.ResponseWriter, r *http.Request) {
	stream, ok := h.ingestStream(w, r)
	if !ok {
		return
	}
	frame, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBytes))
	if err != nil || len(frame) == 0 {
		h.writeError(w, r, fmt.Errorf("%w: frame body required", ErrInvalidInput))
		return
	}
	if err := stream.SetFrame(frame); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ingestStream(w http.ResponseWriter, r *http.Request) (*media.IngestStream, bool) {
	sess, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	stream, ok := sess.Devices.Current()
	if !ok {
		h.writeError(w, r, capture.ErrNoDevice)
		return nil, false
	}
	return stream, true
}

// GetTimeline handles GET /sessions/{session_id}/timeline.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Timeline.State())
}

// GetPlaylist handles GET /sessions/{session_id}/timeline.m3u8. Segment URIs
// are relative to the playlist.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.svc.Playlist(sessionID(r), func(seg capture.Segment) string {
		return "segments/" + seg.ID
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", playlistContentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(playlist))
}

// Seek handles POST /sessions/{session_id}/timeline/seek.
// Body: { "time": 4.2 } in global seconds.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Time *float64 `json:"time"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Time == nil || math.IsNaN(*body.Time) {
		h.writeError(w, r, fmt.Errorf("%w: time is required", ErrInvalidInput))
		return
	}
	if err := sess.Timeline.Seek(*body.Time); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Timeline.State())
}

// Play handles POST /sessions/{session_id}/timeline/play.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Timeline.Play(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Timeline.State())
}

// Pause handles POST /sessions/{session_id}/timeline/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Timeline.Pause()
	h.writeJSON(w, http.StatusOK, sess.Timeline.State())
}

// TimeUpdate handles POST /sessions/{session_id}/timeline/time, the
// player's periodic report of its local time.
// Body: { "local_time": 1.25 }; without local_time the virtual player's
// position is used.
func (h *Handler) TimeUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		LocalTime *float64 `json:"local_time"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.LocalTime == nil {
		// Without a client report the virtual player drives playback, so
		// its end of segment has to advance the timeline here.
		if sess.Player.Ended() {
			sess.Timeline.OnSegmentEnded()
		}
		local := sess.Player.Position()
		body.LocalTime = &local
	}
	if math.IsNaN(*body.LocalTime) || math.IsInf(*body.LocalTime, 0) {
		h.writeError(w, r, fmt.Errorf("%w: local_time must be a finite number", ErrInvalidInput))
		return
	}
	sess.Timeline.OnTimeUpdate(*body.LocalTime)
	h.writeJSON(w, http.StatusOK, sess.Timeline.State())
}

// SegmentEnded handles POST /sessions/{session_id}/timeline/ended.
func (h *Handler) SegmentEnded(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Timeline.OnSegmentEnded()
	h.writeJSON(w, http.StatusOK, sess.Timeline.State())
}

// GetLayers handles GET /sessions/{session_id}/layers?at=3.5.
func (h *Handler) GetLayers(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	at := -1.0
	if s := r.URL.Query().Get("at"); s != "" {
		v, err := parseTime(s, "at")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		at = v
	}
	h.writeJSON(w, http.StatusOK, sess.LayersAt(at))
}

// AddAudioLayer handles POST /sessions/{session_id}/layers/audio?start=5.
// The body is the audio payload; start defaults to the playhead.
func (h *Handler) AddAudioLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	start, err := startParam(r, sess)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil || len(payload) == 0 {
		h.writeError(w, r, fmt.Errorf("%w: audio body required", ErrInvalidInput))
		return
	}
	layer, err := sess.Layers.AddAudioLayer(r.Context(), payload, start)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("audio layer added",
		slog.String("session_id", string(sess.ID)),
		slog.String("layer_id", layer.ID),
		slog.Float64("start_time", layer.StartTime),
		slog.Float64("duration", layer.Duration))
	h.writeJSON(w, http.StatusCreated, layer)
}

// UpdateAudioLayer handles PATCH /sessions/{session_id}/layers/audio/{layer_id}.
// Body: { "volume": 0.5 }.
func (h *Handler) UpdateAudioLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Volume *float64 `json:"volume"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Volume == nil {
		h.writeError(w, r, fmt.Errorf("%w: volume is required", ErrInvalidInput))
		return
	}
	layer, err := sess.Layers.SetVolume(chi.URLParam(r, "layer_id"), *body.Volume)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, layer)
}

// RemoveAudioLayer handles DELETE /sessions/{session_id}/layers/audio/{layer_id}.
func (h *Handler) RemoveAudioLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Layers.RemoveAudioLayer(chi.URLParam(r, "layer_id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTextLayer handles POST /sessions/{session_id}/layers/text.
// Body: { "text": "hello", "start_time": 2 }; start_time defaults to the playhead.
func (h *Handler) AddTextLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Text      string   `json:"text"`
		StartTime *float64 `json:"start_time"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	start := sess.Timeline.State().GlobalTime
	if body.StartTime != nil {
		start = *body.StartTime
	}
	layer, err := sess.Layers.AddTextLayer(body.Text, start)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, layer)
}

// UpdateTextLayer handles PATCH /sessions/{session_id}/layers/text/{layer_id}.
// The body carries any subset of the text layer fields.
func (h *Handler) UpdateTextLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var update timeline.TextUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		h.writeError(w, r, err)
		return
	}
	layer, err := sess.Layers.UpdateTextLayer(chi.URLParam(r, "layer_id"), update)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, layer)
}

// RemoveTextLayer handles DELETE /sessions/{session_id}/layers/text/{layer_id}.
func (h *Handler) RemoveTextLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Layers.RemoveTextLayer(chi.URLParam(r, "layer_id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Publish handles POST /sessions/{session_id}/publish.
// Body: { "title": "...", "effect": "vintage", "thumbnail": "<base64>" }.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return
	}
	result, err := h.svc.Publish(r.Context(), sessionID(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

var (
	errSegmentNotFound = errors.New("segment not found")
	errNoGhostFrame    = errors.New("no ghost frame")
)

func sessionID(r *http.Request) SessionID {
	return SessionID(chi.URLParam(r, "session_id"))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*EditorSession, bool) {
	sess, err := h.svc.Session(sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// startParam reads the optional start query parameter.
func startParam(r *http.Request, sess *EditorSession) (float64, error) {
	s := r.URL.Query().Get("start")
	if s == "" {
		return sess.Timeline.State().GlobalTime, nil
	}
	return parseTime(s, "start")
}

// parseTime parses a query parameter holding a timeline position in seconds.
func parseTime(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
	}
	return v, nil
}

// writeError maps err onto a status code and a JSON error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		derr *capture.DeviceError
		perr *timeline.AudioProbeError
	)
	status, code, msg := http.StatusInternalServerError, "internal", "internal error"
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, timeline.ErrLayerNotFound),
		errors.Is(err, errSegmentNotFound),
		errors.Is(err, errNoGhostFrame):
		status, code, msg = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, capture.ErrBudgetExceeded):
		status, code, msg = http.StatusConflict, "budget_exceeded", err.Error()
		if h.metrics != nil {
			h.metrics.IncBudgetRejections()
		}
	case errors.As(err, &derr):
		status, code, msg = http.StatusServiceUnavailable, "device_"+derr.Kind.String(), derr.UserMessage()
	case errors.As(err, &perr):
		status, code, msg = http.StatusUnprocessableEntity, "audio_probe_failed", err.Error()
		if h.metrics != nil {
			h.metrics.IncProbeFailures()
		}
	case errors.Is(err, capture.ErrInvalidSpeed),
		errors.Is(err, capture.ErrInvalidTimer),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, timeline.ErrInvalidLayer):
		status, code, msg = http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, capture.ErrInvalidOperation),
		errors.Is(err, timeline.ErrNotReady),
		errors.Is(err, media.ErrStreamClosed),
		errors.Is(err, ErrSessionExists):
		status, code, msg = http.StatusConflict, "invalid_operation", err.Error()
	}

	if status >= http.StatusInternalServerError && derr == nil {
		h.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	} else {
		h.log.Debug("request rejected",
			slog.String("path", r.URL.Path),
			slog.String("code", code),
			slog.String("error", err.Error()))
	}
	h.writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// decodeJSON decodes the request body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// writeJSON encodes v before writing the status, so a value that cannot be
// encoded turns into a 500 instead of an empty success response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode response failed", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "internal", Message: "internal error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
