package wavfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// DefaultSampleRate is the rate clips and normalized audio use.
	DefaultSampleRate = 16000
	// DefaultPCMRate is assumed for raw PCM without a rate parameter.
	DefaultPCMRate = 24000
	// DefaultPCMBits is assumed for raw PCM without an audio/L<bits> type.
	DefaultPCMBits = 16

	pcmFormat = 1
)

// PCMFormat describes raw little-endian PCM.
type PCMFormat struct {
	BitsPerSample int
	SampleRate    int
	Channels      int
}

// ParsePCMMime extracts bits per sample and rate from a MIME type such as
// "audio/L16;codec=pcm;rate=24000". Unparseable parts keep their defaults.
func ParsePCMMime(mimeType string) PCMFormat {
	format := PCMFormat{BitsPerSample: DefaultPCMBits, SampleRate: DefaultPCMRate, Channels: 1}
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		switch {
		case strings.HasPrefix(strings.ToLower(param), "rate="):
			if rate, err := strconv.Atoi(strings.TrimSpace(param[len("rate="):])); err == nil && rate > 0 {
				format.SampleRate = rate
			}
		case strings.HasPrefix(param, "audio/L"):
			if bits, err := strconv.Atoi(param[len("audio/L"):]); err == nil && bits > 0 {
				format.BitsPerSample = bits
			}
		}
	}
	return format
}

// WriteSilence writes a mono 16-bit WAV of durationMS milliseconds of silence.
func WriteSilence(path string, durationMS, sampleRate int) error {
	if durationMS < 0 {
		return fmt.Errorf("write silence: negative duration %d", durationMS)
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	samples := make([]int, sampleRate*durationMS/1000)
	return Write(path, samples, PCMFormat{BitsPerSample: 16, SampleRate: sampleRate, Channels: 1})
}

// Write encodes integer samples into a WAV file, creating parent directories.
func Write(path string, samples []int, format PCMFormat) error {
	if format.Channels <= 0 {
		format.Channels = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure wav directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	enc := wav.NewEncoder(file, format.SampleRate, format.BitsPerSample, format.Channels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           samples,
		SourceBitDepth: format.BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return file.Close()
}

// PCMToWAV wraps raw little-endian PCM described by mimeType into a mono WAV
// file at path.
func PCMToWAV(pcm []byte, mimeType, path string) error {
	format := ParsePCMMime(mimeType)
	samples, err := decodePCM(pcm, format.BitsPerSample)
	if err != nil {
		return err
	}
	return Write(path, samples, format)
}

func decodePCM(pcm []byte, bits int) ([]int, error) {
	width := bits / 8
	if width < 1 || width > 4 || bits%8 != 0 {
		return nil, fmt.Errorf("pcm: unsupported bit depth %d", bits)
	}
	count := len(pcm) / width
	samples := make([]int, count)
	for i := 0; i < count; i++ {
		chunk := pcm[i*width : (i+1)*width]
		switch width {
		case 1:
			samples[i] = int(chunk[0]) - 128
		case 2:
			samples[i] = int(int16(uint16(chunk[0]) | uint16(chunk[1])<<8))
		case 3:
			v := int32(uint32(chunk[0])<<8|uint32(chunk[1])<<16|uint32(chunk[2])<<24) >> 8
			samples[i] = int(v)
		case 4:
			samples[i] = int(int32(uint32(chunk[0]) | uint32(chunk[1])<<8 | uint32(chunk[2])<<16 | uint32(chunk[3])<<24))
		}
	}
	return samples, nil
}

// Read decodes a PCM WAV file.
func Read(path string) ([]int, PCMFormat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, PCMFormat{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, PCMFormat{}, fmt.Errorf("%s: %w: %v", path, ErrInvalidWAV, err)
	}
	if buf == nil || dec.SampleRate == 0 || dec.NumChans == 0 {
		return nil, PCMFormat{}, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	format := PCMFormat{
		BitsPerSample: int(dec.BitDepth),
		SampleRate:    int(dec.SampleRate),
		Channels:      int(dec.NumChans),
	}
	return buf.Data, format, nil
}

// ErrInvalidWAV reports a file that is not a PCM WAV container.
var ErrInvalidWAV = errors.New("not a valid wav file")

// Duration returns the playback length of a WAV file.
func Duration(path string) (time.Duration, error) {
	samples, format, err := Read(path)
	if err != nil {
		return 0, err
	}
	frames := len(samples) / format.Channels
	return time.Duration(frames) * time.Second / time.Duration(format.SampleRate), nil
}

// Concat joins WAV files that share a format into dest, inserting gapMS of
// silence between consecutive parts.
func Concat(dest string, parts []string, gapMS int) error {
	if len(parts) == 0 {
		return errors.New("concat: no parts")
	}
	var (
		joined []int
		format PCMFormat
	)
	for i, part := range parts {
		samples, partFormat, err := Read(part)
		if err != nil {
			return err
		}
		if i == 0 {
			format = partFormat
		} else if partFormat != format {
			return fmt.Errorf("concat: %s has format %+v, expected %+v", part, partFormat, format)
		}
		if i > 0 && gapMS > 0 {
			joined = append(joined, make([]int, format.SampleRate*gapMS/1000*format.Channels)...)
		}
		joined = append(joined, samples...)
	}
	return Write(dest, joined, format)
}
