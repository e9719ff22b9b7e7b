// Command resample-iq resamples a WAV capture to a target sample rate
// through the fixed-point polyphase core.
//
// Stereo files are treated as I/Q pairs (left = I, right = Q); mono
// files as real baseband with a zero quadrature component.
//
// Usage:
//
//	resample-iq -rate 44100 capture.wav out.wav
//	resample-iq -rate 44100 -precision q15 -backend scalar capture.wav out.wav
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	resamp "github.com/tphakala/go-iq-resampler"
)

const (
	defaultOutRate = 44100

	minRequiredArgs = 2

	outputBitDepth = 16
	wavAudioFormat = 1 // PCM

	maxInt16 = 32767.0
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outRate := flag.Int("rate", defaultOutRate, "Target sample rate in Hz")
	precision := flag.String("precision", "q31", "Fixed-point tier: q31 or q15")
	backend := flag.String("backend", "auto", "Dot-product backend: auto, scalar, sse2, neon")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("insufficient arguments")
	}

	params := resamp.Params{}
	switch *precision {
	case "q31":
		params.Precision = resamp.PrecisionQ31
	case "q15":
		params.Precision = resamp.PrecisionQ15
	default:
		return fmt.Errorf("unknown precision %q", *precision)
	}
	switch *backend {
	case "auto":
		params.Backend = resamp.BackendAuto
	case "scalar":
		params.Backend = resamp.BackendScalar
	case "sse2":
		params.Backend = resamp.BackendSSE2
	case "neon":
		params.Backend = resamp.BackendNEON
	default:
		return fmt.Errorf("unknown backend %q", *backend)
	}

	input, inRate, channels, err := readWAV(args[0])
	if err != nil {
		return err
	}
	if *verbose {
		log.Printf("input: %d samples at %d Hz, %d channel(s)", len(input), inRate, channels)
	}

	r, err := resamp.New(params)
	if err != nil {
		return err
	}
	rate := float64(*outRate) / float64(inRate)
	if err := r.SetRate(rate); err != nil {
		return err
	}
	if *verbose {
		info := r.Info()
		log.Printf("resampling x%.6f, %s tier, %s backend, %d phases",
			rate, info.Precision, info.Backend, info.PhaseCount)
	}

	output := make([]complex64, 0, int(float64(len(input))*rate)+1)
	buf := make([]complex64, resamp.OutputLen(rate))
	for _, x := range input {
		n := r.Execute(x, buf)
		output = append(output, buf[:n]...)
	}
	if *verbose {
		log.Printf("output: %d samples at %d Hz", len(output), *outRate)
	}

	return writeWAV(args[1], output, *outRate, channels)
}

// readWAV decodes a WAV file into complex samples.
func readWAV(path string) ([]complex64, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := pcm.Format.NumChannels
	if channels != 1 && channels != 2 {
		return nil, 0, 0, fmt.Errorf("%s has %d channels, want mono or I/Q stereo", path, channels)
	}

	scale := float32(int(1)<<(decoder.BitDepth-1)) - 1
	frames := len(pcm.Data) / channels
	samples := make([]complex64, frames)
	for i := 0; i < frames; i++ {
		re := float32(pcm.Data[i*channels]) / scale
		var im float32
		if channels == 2 {
			im = float32(pcm.Data[i*channels+1]) / scale
		}
		samples[i] = complex(re, im)
	}

	return samples, pcm.Format.SampleRate, channels, nil
}

// writeWAV encodes complex samples as 16-bit PCM.
func writeWAV(path string, samples []complex64, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, outputBitDepth, channels, wavAudioFormat)

	data := make([]int, len(samples)*channels)
	for i, s := range samples {
		data[i*channels] = clampPCM(real(s))
		if channels == 2 {
			data[i*channels+1] = clampPCM(imag(s))
		}
	}

	pcm := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: outputBitDepth,
	}
	if err := enc.Write(pcm); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return enc.Close()
}

// clampPCM converts one component to a 16-bit PCM code.
func clampPCM(v float32) int {
	scaled := float64(v) * maxInt16
	if scaled > maxInt16 {
		return maxInt16
	}
	if scaled < -maxInt16-1 {
		return -maxInt16 - 1
	}
	return int(scaled)
}
