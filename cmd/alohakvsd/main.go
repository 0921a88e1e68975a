package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	errors "golang.org/x/xerrors"
	"golang.org/x/sync/errgroup"

	"github.com/lanikai/alohakvs"
	"github.com/lanikai/alohakvs/internal/config"
	"github.com/lanikai/alohakvs/internal/logging"
	"github.com/lanikai/alohakvs/internal/metrics"
)

var log = logging.DefaultLogger.WithTag("alohakvsd")

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}

// Read the configuration file, if any, and apply command line overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		var err error
		if cfg, err = config.Load(flagConfig); err != nil {
			return nil, err
		}
	}

	changed := flag.CommandLine.Changed
	if changed("video") {
		cfg.Video.Source = flagVideo
	}
	if changed("audio") {
		cfg.Audio.Source = flagAudio
		cfg.Audio.Enabled = flagAudio != ""
	}
	if changed("audio-codec") {
		cfg.Audio.Codec = flagAudioCodec
	}
	if changed("fps") {
		cfg.Video.FPS = flagFPS
	}
	if changed("output") {
		cfg.Output.FilenameFormat = flagOutput
	}
	if changed("realtime") {
		cfg.Output.Realtime = flagRealtime
	}
	if changed("mem-limit") {
		cfg.Buffer.MemLimit = flagMemLimit
	}
	if changed("no-ring-buffer") {
		cfg.Buffer.RingBuffer = !flagNoRingBuffer
	}
	if changed("metrics-address") {
		cfg.MetricsAddress = flagMetricsAddress
	}
	for _, t := range flagTags {
		kv := strings.SplitN(t, "=", 2)
		if len(kv) != 2 {
			return nil, errors.Errorf("invalid tag %q, expected NAME=VALUE", t)
		}
		cfg.Tags = append(cfg.Tags, config.TagConfig{Name: kv[0], Value: kv[1]})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Video.Source == "" {
		return nil, errors.New("no video input, see --help")
	}
	if cfg.Audio.Enabled && cfg.Audio.Source == "" {
		return nil, errors.New("audio enabled without an audio input")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	startMs := uint64(time.Now().UnixNano() / int64(time.Millisecond))

	videoFile, err := os.Open(cfg.Video.Source)
	if err != nil {
		return err
	}
	defer videoFile.Close()

	video, videoTrack, err := openVideo(videoFile, cfg.Video.TrackName, cfg.Video.FPS, startMs)
	if err != nil {
		return errors.Errorf("%s: %w", cfg.Video.Source, err)
	}
	sources := []frameSource{video}

	var audioTrack *alohakvs.AudioTrackInfo
	if cfg.Audio.Enabled {
		audioFile, err := os.Open(cfg.Audio.Source)
		if err != nil {
			return err
		}
		defer audioFile.Close()

		audio, track, err := openAudio(audioFile, cfg.Audio, startMs)
		if err != nil {
			return errors.Errorf("%s: %w", cfg.Audio.Source, err)
		}
		sources = append(sources, audio)
		audioTrack = track
	}

	stream, err := alohakvs.NewStream(alohakvs.Config{
		Video: videoTrack,
		Audio: audioTrack,
	})
	if err != nil {
		return err
	}

	m := metrics.New(stream)
	if cfg.MetricsAddress != "" {
		srv := &http.Server{Addr: cfg.MetricsAddress, Handler: m.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Error("Metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	name := cfg.Filename(startMs)
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	defer out.Close()
	log.Info("Writing %s to %s", cfg.StreamName, name)

	p := newPipeline(stream, m, startMs)
	p.realtime = cfg.Output.Realtime
	if cfg.Buffer.RingBuffer {
		p.memLimit = cfg.Buffer.MemLimit
	}
	for _, t := range cfg.Tags {
		p.tags = append(p.tags, alohakvs.Tag{Name: t.Name, Value: t.Value})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.produce(ctx, sources...) })
	g.Go(func() error { return p.consume(ctx, out) })
	err = g.Wait()

	drainErr := drain(stream)
	if cerr := stream.Close(); cerr != nil && drainErr == nil {
		drainErr = cerr
	}
	if err != nil {
		return err
	}
	if drainErr != nil {
		return drainErr
	}
	return out.Sync()
}

// Release frames left behind after an early exit.
func drain(stream *alohakvs.Stream) error {
	n := 0
	for {
		f, err := stream.Pop()
		if err != nil {
			return err
		}
		if f == nil {
			break
		}
		f.Release()
		n++
	}
	if n > 0 {
		log.Warn("Discarded %d unsent frames", n)
	}
	return nil
}
