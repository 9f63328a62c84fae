package player

import (
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/task"
)

// Stats counts what the loop has moved so far. Arrays are indexed by kindSlot.
type Stats struct {
	SamplesFed     [2]atomic.Int64
	BytesFed       [2]atomic.Int64
	FramesRendered atomic.Int64
	AudioBytes     atomic.Int64
}

func kindSlot(kind pkg.MediaKind) int {
	if kind == pkg.KindAudio {
		return 1
	}
	return 0
}

func (s *Stats) fed(kind pkg.MediaKind, size int) {
	s.SamplesFed[kindSlot(kind)].Add(1)
	s.BytesFed[kindSlot(kind)].Add(int64(size))
}

type prometheusDesc struct {
	SamplesFed, BytesFed, FramesRendered, AudioBytes, ActiveTracks, State *prometheus.Desc
}

func (d *prometheusDesc) init() {
	d.SamplesFed = prometheus.NewDesc("player_samples_fed_total", "Compressed samples handed to decoders", []string{"track"}, nil)
	d.BytesFed = prometheus.NewDesc("player_bytes_fed_total", "Compressed bytes handed to decoders", []string{"track"}, nil)
	d.FramesRendered = prometheus.NewDesc("player_frames_rendered_total", "Video frames released for rendering", nil, nil)
	d.AudioBytes = prometheus.NewDesc("player_audio_bytes_written_total", "Audio bytes handed to the sink", nil, nil)
	d.ActiveTracks = prometheus.NewDesc("player_active_tracks", "Selected tracks still active", nil, nil)
	d.State = prometheus.NewDesc("player_state", "Player lifecycle state", nil, nil)
}

// Collector exposes a player's Stats to prometheus.
type Collector struct {
	prometheusDesc
	*Player
}

func NewCollector(p *Player) *Collector {
	c := &Collector{Player: p}
	c.init()
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.prometheusDesc.SamplesFed
	ch <- c.prometheusDesc.BytesFed
	ch <- c.prometheusDesc.FramesRendered
	ch <- c.prometheusDesc.AudioBytes
	ch <- c.prometheusDesc.ActiveTracks
	ch <- c.prometheusDesc.State
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := &c.Player.Stats
	for i, label := range [2]string{"video", "audio"} {
		ch <- prometheus.MustNewConstMetric(c.prometheusDesc.SamplesFed, prometheus.CounterValue, float64(stats.SamplesFed[i].Load()), label)
		ch <- prometheus.MustNewConstMetric(c.prometheusDesc.BytesFed, prometheus.CounterValue, float64(stats.BytesFed[i].Load()), label)
	}
	ch <- prometheus.MustNewConstMetric(c.prometheusDesc.FramesRendered, prometheus.CounterValue, float64(stats.FramesRendered.Load()))
	ch <- prometheus.MustNewConstMetric(c.prometheusDesc.AudioBytes, prometheus.CounterValue, float64(stats.AudioBytes.Load()))
	var active int
	for mask := c.Player.Mask(); mask != 0; mask &= mask - 1 {
		active++
	}
	ch <- prometheus.MustNewConstMetric(c.prometheusDesc.ActiveTracks, prometheus.GaugeValue, float64(active))
	ch <- prometheus.MustNewConstMetric(c.prometheusDesc.State, prometheus.GaugeValue, float64(c.Player.State()))
}

// MetricsServer serves a registry over http for as long as the task lives.
type MetricsServer struct {
	task.Task
	ListenAddr string
	Path       string
	Registry   *prometheus.Registry
	listener   net.Listener
	server     *http.Server
}

func (m *MetricsServer) Start() (err error) {
	if m.listener, err = net.Listen("tcp", m.ListenAddr); err != nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(m.Path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Handler: mux}
	m.SetDescription("addr", m.listener.Addr().String())
	m.Info("metrics listening", "addr", m.listener.Addr().String(), "path", m.Path)
	return
}

func (m *MetricsServer) Addr() net.Addr {
	return m.listener.Addr()
}

func (m *MetricsServer) Go() error {
	if err := m.server.Serve(m.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *MetricsServer) Dispose() {
	m.server.Close()
}
