// Package config loads the sample producer's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	errors "golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const (
	AudioCodecAAC  = "aac"
	AudioCodecG711 = "g711"
)

type Config struct {
	StreamName string       `yaml:"stream_name"`
	Video      VideoConfig  `yaml:"video"`
	Audio      AudioConfig  `yaml:"audio"`
	Buffer     BufferConfig `yaml:"buffer"`
	Output     OutputConfig `yaml:"output"`

	// Tags written at every cluster boundary after the first.
	Tags []TagConfig `yaml:"tags,omitempty"`

	MetricsAddress string `yaml:"metrics_address,omitempty"`
}

type VideoConfig struct {
	TrackName string `yaml:"track_name"`
	Source    string `yaml:"source"` // Annex B H.264 file
	FPS       int    `yaml:"fps"`
}

type AudioConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TrackName string `yaml:"track_name"`
	Source    string `yaml:"source"` // ADTS file for aac, raw samples for g711
	Codec     string `yaml:"codec"`
	Frequency int    `yaml:"frequency"`
	Channels  int    `yaml:"channels"`
}

type BufferConfig struct {
	// Drop the oldest frames once the stream holds more than MemLimit bytes.
	RingBuffer bool `yaml:"ring_buffer"`
	MemLimit   int  `yaml:"mem_limit"`
}

type OutputConfig struct {
	// File name pattern, formatted with the session start time in ms.
	FilenameFormat string `yaml:"filename_format"`
	Realtime       bool   `yaml:"realtime"`
}

type TagConfig struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		StreamName: "kvs_example_camera_stream",
		Video: VideoConfig{
			TrackName: "kvs video track",
			FPS:       30,
		},
		Audio: AudioConfig{
			Enabled:   false,
			TrackName: "kvs audio track",
			Codec:     AudioCodecAAC,
			Frequency: 8000,
			Channels:  1,
		},
		Buffer: BufferConfig{
			RingBuffer: true,
			MemLimit:   2 * 1024 * 1024,
		},
		Output: OutputConfig{
			FilenameFormat: "video_%d.mkv",
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.StreamName == "" {
		return errors.New("stream_name is required")
	}
	if c.Video.TrackName == "" {
		return errors.New("video.track_name is required")
	}
	if c.Video.FPS <= 0 || c.Video.FPS > 1000 {
		return fmt.Errorf("video.fps out of range: %d", c.Video.FPS)
	}
	if c.Audio.Enabled {
		switch c.Audio.Codec {
		case AudioCodecAAC, AudioCodecG711:
		default:
			return fmt.Errorf("unsupported audio.codec: %q", c.Audio.Codec)
		}
		if c.Audio.TrackName == "" {
			return errors.New("audio.track_name is required")
		}
		if c.Audio.Frequency <= 0 {
			return fmt.Errorf("audio.frequency out of range: %d", c.Audio.Frequency)
		}
		if c.Audio.Channels < 1 || c.Audio.Channels > 8 {
			return fmt.Errorf("audio.channels out of range: %d", c.Audio.Channels)
		}
	}
	if c.Buffer.RingBuffer && c.Buffer.MemLimit <= 0 {
		return fmt.Errorf("buffer.mem_limit must be positive: %d", c.Buffer.MemLimit)
	}
	if !strings.Contains(c.Output.FilenameFormat, "%d") {
		return fmt.Errorf("output.filename_format needs a %%d verb: %q", c.Output.FilenameFormat)
	}
	for _, t := range c.Tags {
		if t.Name == "" {
			return errors.New("tag name is required")
		}
	}
	return nil
}

// Filename returns the output file name for a session starting at startMs.
func (c *Config) Filename(startMs uint64) string {
	return fmt.Sprintf(c.Output.FilenameFormat, startMs)
}
