package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrConversion is returned when a recording cannot be turned into WAV
var ErrConversion = errors.New("audio conversion failed")

// Converter turns an arbitrary recording into a PCM WAV file
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// IsWAV reports whether path has a .wav extension
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// FFmpegConverter shells out to ffmpeg
type FFmpegConverter struct {
	Binary     string
	SampleRate int
}

// NewFFmpegConverter creates a converter using the given binary and output rate
func NewFFmpegConverter(binary string, sampleRate int) *FFmpegConverter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegConverter{Binary: binary, SampleRate: sampleRate}
}

// Args returns the ffmpeg command line for one conversion
func (c *FFmpegConverter) Args(inputPath, outputPath string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", inputPath, "-ac", "1"}
	if c.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(c.SampleRate))
	}
	return append(args, "-acodec", "pcm_s16le", outputPath)
}

// Convert transcodes inputPath into a mono 16-bit WAV at outputPath
func (c *FFmpegConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, c.Args(inputPath, outputPath)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s: %s", ErrConversion, filepath.Base(inputPath), msg)
	}

	if err := ValidateWAVFile(outputPath); err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	return nil
}

// ValidateWAVFile checks that the file at path has a readable WAV header
func ValidateWAVFile(path string) error {
	_, err := ReadWAVFile(path)
	return err
}
