package studio

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"segment-studio/internal/platform/logger"
)

func newTestRouter(f *fixture) *chi.Mux {
	h := NewHandler(f.svc, logger.Discard(), nil)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, r, method, path, bytes.NewReader(b))
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) SessionView {
	t.Helper()
	var v SessionView
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode session view: %v", err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e.Error
}

func TestHandler_recording_flow(t *testing.T) {
	f := newFixture(t, 60)
	r := newTestRouter(f)

	rec := do(t, r, http.MethodPost, "/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	v := decodeView(t, rec)
	base := "/sessions/" + string(v.ID)
	if !v.Initialized {
		t.Fatal("session should start with the camera acquired")
	}

	if rec := do(t, r, http.MethodPut, base+"/ingest/frame", bytes.NewReader(pngFrame(t, 32, 32))); rec.Code != http.StatusNoContent {
		t.Fatalf("frame: expected 204, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, base+"/ingest/chunks", strings.NewReader("early")); rec.Code != http.StatusNoContent {
		t.Errorf("chunk outside recording: expected 204, got %d", rec.Code)
	}

	rec = do(t, r, http.MethodPost, base+"/record/start", nil)
	if rec.Code != http.StatusOK || decodeView(t, rec).State != "recording" {
		t.Fatalf("start: got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, base+"/ingest/chunks", strings.NewReader("AAA")); rec.Code != http.StatusAccepted {
		t.Errorf("chunk: expected 202, got %d", rec.Code)
	}
	f.clock.Advance(2)
	rec = do(t, r, http.MethodPost, base+"/record/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", rec.Code)
	}
	v = decodeView(t, rec)
	if len(v.Segments) != 1 || v.Segments[0].Duration != 2 || v.Segments[0].Size != 3 || !v.HasGhostFrame {
		t.Fatalf("after stop: %+v", v)
	}
	segID := v.Segments[0].ID

	rec = do(t, r, http.MethodGet, base+"/segments/"+segID, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "AAA" {
		t.Errorf("segment media: %d %q", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodGet, base+"/overlay/frame", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("ghost frame: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = do(t, r, http.MethodGet, base+"/timeline.m3u8", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "segments/"+segID) {
		t.Errorf("playlist: %d\n%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != playlistContentType {
		t.Errorf("playlist Content-Type = %q", ct)
	}

	rec = do(t, r, http.MethodPost, base+"/finalize", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "AAA" {
		t.Errorf("finalize: %d %q", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, base+"/undo", nil)
	if rec.Code != http.StatusOK || len(decodeView(t, rec).Segments) != 0 {
		t.Errorf("undo: %d", rec.Code)
	}
	rec = do(t, r, http.MethodPost, base+"/redo", nil)
	if rec.Code != http.StatusOK || len(decodeView(t, rec).Segments) != 1 {
		t.Errorf("redo: %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, base+"/publish", map[string]string{"title": "First take"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("publish: expected 201, got %d", rec.Code)
	}
	var res PublishResult
	_ = json.NewDecoder(rec.Body).Decode(&res)
	if res.Metadata.Title != "First take" || res.ThumbnailSource != ThumbnailLastFrame {
		t.Errorf("publish result: %+v", res)
	}

	rec = do(t, r, http.MethodDelete, base+"/segments", nil)
	if rec.Code != http.StatusOK || len(decodeView(t, rec).Segments) != 0 {
		t.Errorf("discard: %d", rec.Code)
	}

	if rec := do(t, r, http.MethodDelete, base, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestHandler_timeline_and_layers(t *testing.T) {
	f := newFixture(t, 60)
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	sess, _ := f.svc.Session(decodeView(t, rec).ID)
	base := "/sessions/" + string(sess.ID)
	f.record(t, sess, 2, "AA")
	f.record(t, sess, 3, "BBB")

	rec = doJSON(t, r, http.MethodPost, base+"/timeline/seek", map[string]float64{"time": 3.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("seek: expected 200, got %d", rec.Code)
	}
	var st struct {
		Index    int     `json:"current_segment_index"`
		Local    float64 `json:"local_time"`
		Global   float64 `json:"global_time"`
		Duration float64 `json:"duration"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&st)
	if st.Index != 1 || st.Local != 1.5 || st.Global != 3.5 || st.Duration != 5 {
		t.Errorf("seek state = %+v", st)
	}

	rec = doJSON(t, r, http.MethodPost, base+"/timeline/time", map[string]float64{"local_time": 2})
	_ = json.NewDecoder(rec.Body).Decode(&st)
	if st.Global != 4 {
		t.Errorf("time update global = %v, want 4", st.Global)
	}
	if rec := doJSON(t, r, http.MethodPost, base+"/timeline/seek", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("seek without time: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, base+"/layers/text", map[string]any{"text": "hello", "start_time": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add text: expected 201, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodPost, base+"/layers/audio?start=0", strings.NewReader("mp3"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add audio: expected 201, got %d", rec.Code)
	}
	var audio struct {
		ID       string  `json:"id"`
		Duration float64 `json:"duration"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&audio)
	if audio.Duration != 4 {
		t.Errorf("audio duration = %v, want probed 4", audio.Duration)
	}
	if rec := doJSON(t, r, http.MethodPatch, base+"/layers/audio/"+audio.ID, map[string]float64{"volume": 0.5}); rec.Code != http.StatusOK {
		t.Errorf("volume: expected 200, got %d", rec.Code)
	}

	rec = do(t, r, http.MethodGet, base+"/layers?at=1.5", nil)
	var layers LayersView
	_ = json.NewDecoder(rec.Body).Decode(&layers)
	if len(layers.Audio) != 1 || len(layers.Text) != 1 || len(layers.Visible) != 1 {
		t.Errorf("layers = %+v", layers)
	}
	if rec := do(t, r, http.MethodGet, base+"/layers?at=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad at: expected 400, got %d", rec.Code)
	}

	if rec := do(t, r, http.MethodDelete, base+"/layers/audio/"+audio.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("remove audio: expected 204, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodDelete, base+"/layers/audio/"+audio.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("remove audio twice: expected 404, got %d", rec.Code)
	}
}

func TestHandler_errors(t *testing.T) {
	f := newFixture(t, 1)
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	sess, _ := f.svc.Session(decodeView(t, rec).ID)
	base := "/sessions/" + string(sess.ID)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown session", http.MethodGet, "/sessions/missing", "", http.StatusNotFound, "not_found"},
		{"nothing to undo", http.MethodPost, base + "/undo", "", http.StatusConflict, "invalid_operation"},
		{"nothing to finalize", http.MethodPost, base + "/finalize", "", http.StatusConflict, "invalid_operation"},
		{"speed out of range", http.MethodPut, base + "/settings", `{"speed":5}`, http.StatusBadRequest, "invalid_input"},
		{"negative timer", http.MethodPut, base + "/settings", `{"timer":-1}`, http.StatusBadRequest, "invalid_input"},
		{"bad json", http.MethodPut, base + "/settings", `not json`, http.StatusBadRequest, "invalid_input"},
		{"unknown facing", http.MethodPost, base + "/device", `{"facing":"side"}`, http.StatusBadRequest, "invalid_input"},
		{"unknown segment", http.MethodGet, base + "/segments/nope", "", http.StatusNotFound, "not_found"},
		{"no ghost frame", http.MethodGet, base + "/overlay/frame", "", http.StatusNotFound, "not_found"},
		{"empty caption", http.MethodPost, base + "/layers/text", `{"text":"  "}`, http.StatusBadRequest, "invalid_input"},
		{"blank title", http.MethodPost, base + "/publish", `{"title":" "}`, http.StatusBadRequest, "invalid_input"},
		{"play empty timeline", http.MethodPost, base + "/timeline/play", "", http.StatusConflict, "invalid_operation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, strings.NewReader(tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantErr {
				t.Errorf("error code = %q, want %q", code, tt.wantErr)
			}
		})
	}
}

func TestHandler_budget_exceeded(t *testing.T) {
	f := newFixture(t, 1)
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	sess, _ := f.svc.Session(decodeView(t, rec).ID)
	f.record(t, sess, 1, "A")

	rec = do(t, r, http.MethodPost, "/sessions/"+string(sess.ID)+"/record/start", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "budget_exceeded" {
		t.Errorf("error code = %q, want budget_exceeded", code)
	}
}

func TestHandler_device_error(t *testing.T) {
	f := newFixture(t, 60)
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	base := "/sessions/" + string(decodeView(t, rec).ID)

	rec = doJSON(t, r, http.MethodPost, base+"/device", map[string]string{"facing": "environment"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var e errorResponse
	_ = json.NewDecoder(rec.Body).Decode(&e)
	if e.Error != "device_not_found" || e.Message != "No camera found on this device." {
		t.Errorf("error = %+v", e)
	}

	rec = do(t, r, http.MethodGet, base, nil)
	v := decodeView(t, rec)
	if v.Initialized || v.Error == nil || v.Error.Kind != "not_found" {
		t.Errorf("session after failed acquisition = %+v", v)
	}
	if rec := do(t, r, http.MethodPost, base+"/ingest/chunks", strings.NewReader("x")); rec.Code != http.StatusConflict {
		t.Errorf("chunk without device: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, base+"/device", map[string]string{"facing": "user"})
	if rec.Code != http.StatusOK || decodeView(t, rec).Error != nil {
		t.Errorf("re-acquire: %d", rec.Code)
	}
}

func TestHandler_audio_probe_failure(t *testing.T) {
	f := newFixture(t, 60)
	f.prober.err = errBoom
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	base := "/sessions/" + string(decodeView(t, rec).ID)

	rec = do(t, r, http.MethodPost, base+"/layers/audio?start=0", strings.NewReader("not audio"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "audio_probe_failed" {
		t.Errorf("error code = %q", code)
	}
	if rec := do(t, r, http.MethodPost, base+"/layers/audio", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty audio: expected 400, got %d", rec.Code)
	}
}

func TestHandler_rejects_non_finite_times(t *testing.T) {
	f := newFixture(t, 60)
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	base := "/sessions/" + string(decodeView(t, rec).ID)

	for _, path := range []string{
		base + "/layers/audio?start=Inf",
		base + "/layers/audio?start=-Inf",
		base + "/layers/audio?start=NaN",
	} {
		rec := do(t, r, http.MethodPost, path, strings.NewReader("mp3"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s: expected 400, got %d", path, rec.Code)
			continue
		}
		if code := errorCode(t, rec); code != "invalid_input" {
			t.Errorf("POST %s: error code = %q", path, code)
		}
	}
	if rec := do(t, r, http.MethodGet, base+"/layers?at=Inf", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("layers at Inf: expected 400, got %d", rec.Code)
	}

	rec = do(t, r, http.MethodGet, base+"/layers", nil)
	var layers LayersView
	if err := json.NewDecoder(rec.Body).Decode(&layers); err != nil {
		t.Fatalf("layers body not decodable: %v", err)
	}
	if rec.Code != http.StatusOK || len(layers.Audio) != 0 {
		t.Errorf("layers = %d %+v, want 200 with no audio", rec.Code, layers)
	}
}

func TestHandler_writeJSON_unencodable_value(t *testing.T) {
	h := NewHandler(nil, logger.Discard(), nil)
	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, map[string]float64{"t": math.Inf(1)})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "internal" {
		t.Errorf("error code = %q, want internal", code)
	}
}

func TestHandler_TimeUpdate_virtual_player_crosses_segments(t *testing.T) {
	f := newFixture(t, 60)
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	sess, _ := f.svc.Session(decodeView(t, rec).ID)
	base := "/sessions/" + string(sess.ID)
	f.record(t, sess, 2, "AA")
	f.record(t, sess, 3, "BBB")

	if rec := do(t, r, http.MethodPost, base+"/timeline/play", nil); rec.Code != http.StatusOK {
		t.Fatalf("play: expected 200, got %d", rec.Code)
	}

	type tick struct {
		Index   int     `json:"current_segment_index"`
		Global  float64 `json:"global_time"`
		Playing bool    `json:"is_playing"`
	}
	var ticks []tick
	for i := 0; i < 5; i++ {
		f.clock.Advance(1)
		rec := do(t, r, http.MethodPost, base+"/timeline/time", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("tick %d: expected 200, got %d", i, rec.Code)
		}
		var st tick
		_ = json.NewDecoder(rec.Body).Decode(&st)
		ticks = append(ticks, st)
	}

	want := []tick{
		{Index: 0, Global: 1, Playing: true},
		{Index: 1, Global: 2, Playing: true},
		{Index: 1, Global: 3, Playing: true},
		{Index: 1, Global: 4, Playing: true},
		{Index: 0, Global: 0, Playing: false},
	}
	for i := range want {
		if ticks[i].Index != want[i].Index || math.Abs(ticks[i].Global-want[i].Global) > 1e-6 || ticks[i].Playing != want[i].Playing {
			t.Errorf("tick %d = %+v, want %+v", i, ticks[i], want[i])
		}
	}
}

func TestHandler_TimeUpdate_rejects_non_finite_local_time(t *testing.T) {
	f := newFixture(t, 60)
	r := newTestRouter(f)
	rec := do(t, r, http.MethodPost, "/sessions", nil)
	base := "/sessions/" + string(decodeView(t, rec).ID)

	// out-of-range numbers never reach the timeline
	rec = do(t, r, http.MethodPost, base+"/timeline/time", strings.NewReader(`{"local_time":1e999}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
