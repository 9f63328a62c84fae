package player

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"m7s.live/player/pkg/config"
)

func TestCollector(t *testing.T) {
	h := newHarness(config.Player{DrainTimeout: time.Second}, videoFormat, audioFormat)
	h.demuxer.samples = interleave(4, 0, 1)
	if err := h.player.Initialize(nil, "x"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(h.player))
	gauge := func(name string) float64 {
		families, err := registry.Gather()
		if err != nil {
			t.Fatalf("gather: %v", err)
		}
		for _, family := range families {
			if family.GetName() == name {
				return family.GetMetric()[0].GetGauge().GetValue()
			}
		}
		t.Fatalf("metric %s not found", name)
		return 0
	}
	if got := gauge("player_active_tracks"); got != 2 {
		t.Errorf("expected 2 active tracks, got %v", got)
	}
	if got := gauge("player_state"); got != float64(StateRunning) {
		t.Errorf("expected running state, got %v", got)
	}
	if err := runWithTimeout(t, h.player, 5*time.Second); err != nil {
		t.Fatalf("run: %v", err)
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counters := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += "/" + label.GetValue()
			}
			counters[key] = metric.GetCounter().GetValue()
		}
	}
	expect := map[string]float64{
		"player_samples_fed_total/video":   4,
		"player_samples_fed_total/audio":   4,
		"player_bytes_fed_total/audio":     12,
		"player_frames_rendered_total":     4,
		"player_audio_bytes_written_total": 12,
	}
	for key, want := range expect {
		if counters[key] != want {
			t.Errorf("%s: expected %v, got %v", key, want, counters[key])
		}
	}
	if got := gauge("player_active_tracks"); got != 0 {
		t.Errorf("expected no active tracks after playback, got %v", got)
	}
}

func TestMetricsServer(t *testing.T) {
	root := createRootJob()
	defer root.Shutdown()
	registry := prometheus.NewRegistry()
	h := newHarness(config.Player{}, videoFormat)
	registry.MustRegister(NewCollector(h.player))
	server := &MetricsServer{ListenAddr: "127.0.0.1:0", Path: "/metrics", Registry: registry}
	if err := root.AddTask(server).WaitStarted(); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + server.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "player_state 0") {
		t.Errorf("expected player_state in scrape, got %s", body)
	}
	server.Stop(io.EOF)
	server.WaitStopped()
}
