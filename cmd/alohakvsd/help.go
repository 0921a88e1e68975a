package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

// Populated via -ldflags="-X ...".
var GitRevisionId string

var (
	flagConfig         string
	flagVideo          string
	flagAudio          string
	flagAudioCodec     string
	flagFPS            int
	flagOutput         string
	flagMemLimit       int
	flagNoRingBuffer   bool
	flagRealtime       bool
	flagMetricsAddress string
	flagTags           []string
	flagHelp           bool
	flagVersion        bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	flag.StringVarP(&flagVideo, "video", "i", "", "H.264 Annex B input")
	flag.StringVarP(&flagAudio, "audio", "a", "", "Audio input")
	flag.StringVarP(&flagAudioCodec, "audio-codec", "", "", "Audio codec, aac or g711")
	flag.IntVarP(&flagFPS, "fps", "r", 0, "Video frame rate")
	flag.StringVarP(&flagOutput, "output", "o", "", "Output file name format")
	flag.IntVarP(&flagMemLimit, "mem-limit", "m", 0, "Buffer memory limit, in bytes")
	flag.BoolVarP(&flagNoRingBuffer, "no-ring-buffer", "", false, "Never drop frames")
	flag.BoolVarP(&flagRealtime, "realtime", "", false, "Pace input at the source rate")
	flag.StringVarP(&flagMetricsAddress, "metrics-address", "", "", "Prometheus listen address")
	flag.StringArrayVarP(&flagTags, "tag", "t", nil, "Fragment tag, NAME=VALUE")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Matroska stream producer for connected cameras

Usage: alohakvsd [OPTION]... --video=FILE

Input:
  -c, --config=FILE          YAML configuration file
  -i, --video=FILE           H.264 Annex B elementary stream
  -a, --audio=FILE           Audio input, ADTS for aac or raw A-law for g711
      --audio-codec=NAME     Audio codec, aac or g711 (default: aac)
  -r, --fps=NUM              Video frame rate (default: 30)
      --realtime             Pace input at the source frame rate

Buffering:
  -m, --mem-limit=NUM        Buffer memory limit, in bytes (default: 2097152)
      --no-ring-buffer       Never drop frames when over the limit

Output:
  -o, --output=FORMAT        Output file name (default: video_%d.mkv)
  -t, --tag=NAME=VALUE       Tag written at each fragment boundary
      --metrics-address=ADDR Serve Prometheus metrics on ADDR

Miscellaneous:
  -h, --help                 Prints this help message and exits
  -v, --version              Prints version information and exits

Set LOGLEVEL=debug, or LOGLEVEL=stream=trace,mkv=debug, for more output.`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	r.Printf("aloha")
	y.Printf("k")
	b.Printf("v")
	y.Println("s")

	fmt.Println(helpString)
}

func version() {
	fmt.Println("alohakvsd", GitRevisionId)
}
