package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"m7s.live/player"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/config"
	"m7s.live/player/pkg/task"
	"m7s.live/player/plugin/adts"
	"m7s.live/player/plugin/annexb"
	plugin_logrotate "m7s.live/player/plugin/logrotate"
	plugin_mp4 "m7s.live/player/plugin/mp4"
	"m7s.live/player/plugin/passthrough"
)

var (
	confPath string
	engine   config.Engine
)

var rootCmd = &cobra.Command{
	Use:           "player",
	Short:         "Play MP4 files into Annex-B video and ADTS audio outputs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

var playCmd = &cobra.Command{
	Use:   "play <file.mp4>",
	Short: "Play a file until it ends or the process is signalled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(args[0])
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe <file.mp4>",
	Short: "List the tracks of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return probe(cmd, args[0])
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&confPath, "config", "c", "config.yaml", "config file")
	flags.String("log-level", "", "trace, debug, info, warn or error")
	playCmd.Flags().String("video-out", "", "write the video track as Annex-B to this file")
	playCmd.Flags().String("audio-out", "", "write the audio track as ADTS to this file")
	playCmd.Flags().String("metrics", "", "serve prometheus metrics on this address")
	playCmd.Flags().Bool("paced", false, "present video frames at their timestamps")
	rootCmd.AddCommand(playCmd, probeCmd)
}

// loadConfig applies defaults, the config file, env and finally flags.
func loadConfig(cmd *cobra.Command) error {
	_, err := config.Parse(&engine, "PLAYER", confPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		err = nil
	}
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		engine.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("video-out") {
		engine.Output.Video, _ = flags.GetString("video-out")
	}
	if flags.Changed("audio-out") {
		engine.Output.Audio, _ = flags.GetString("audio-out")
	}
	if flags.Changed("metrics") {
		engine.Metrics.ListenAddr, _ = flags.GetString("metrics")
	}
	if flags.Changed("paced") {
		engine.Output.Paced, _ = flags.GetBool("paced")
	}
	return nil
}

func play(source string) (err error) {
	logger, _, err := plugin_logrotate.NewLogger(os.Stderr, engine.Log)
	if err != nil {
		return err
	}
	var root task.RootJob
	root.Init(logger)
	defer root.Shutdown()

	var target pkg.RenderTarget
	if engine.Output.Video != "" {
		file, err := os.Create(engine.Output.Video)
		if err != nil {
			return err
		}
		writer := annexb.NewWriter(logger, file, engine.Output.Paced)
		defer writer.Close()
		target = writer
	}
	var sinks pkg.AudioSinkFactory
	if engine.Output.Audio != "" {
		file, err := os.Create(engine.Output.Audio)
		if err != nil {
			return err
		}
		sinks = &adts.Factory{Logger: logger, Writer: file, Queued: engine.Player.AudioRelease != config.AudioReleaseImmediate, QueueSize: engine.Player.OutputSlots}
	}
	decoders := &passthrough.Factory{Logger: logger, Slots: engine.Player.InputSlots, MaxInputSize: engine.Player.MaxInputSize}
	p := player.NewPlayer(logger, plugin_mp4.NewDemuxer(logger), decoders, sinks, engine.Player)

	playTask := &player.PlayTask{Player: p, Target: target, Source: source}
	progress := &player.ProgressTask{Player: p}
	progress.Depend(playTask)
	var metrics *player.MetricsServer
	if engine.Metrics.ListenAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(player.NewCollector(p), collectors.NewGoCollector())
		metrics = &player.MetricsServer{ListenAddr: engine.Metrics.ListenAddr, Path: engine.Metrics.Path, Registry: registry}
		metrics.Depend(playTask)
	}
	root.AddTask(playTask)
	if metrics != nil {
		root.AddTask(metrics)
	}
	root.AddTask(progress)

	err = playTask.WaitStopped()
	if errors.Is(err, task.ErrTaskComplete) || errors.Is(err, task.ErrExit) {
		return nil
	}
	return err
}

func probe(cmd *cobra.Command, source string) error {
	logger := slog.New(plugin_logrotate.NewConsoleHandler(cmd.ErrOrStderr(), pkg.ParseLevel(engine.Log.Level), false))
	formats, err := plugin_mp4.Probe(logger, source)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRACK\tKIND\tFORMAT\tDURATION\tPLAYABLE")
	for i, format := range formats {
		playable := format.Kind() != pkg.KindUnknown && slices.Contains(passthrough.SupportedMimes, format.MimeType)
		if format.Kind() == pkg.KindAudio && pkg.ChannelMaskOf(format) == pkg.ChannelInvalid {
			playable = false
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\n", i, format.Kind(), format.String(), format.Duration, playable)
	}
	return w.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
