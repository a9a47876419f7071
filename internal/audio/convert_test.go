package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestIsWAV(t *testing.T) {
	cases := map[string]bool{
		"a.wav":      true,
		"b.WAV":      true,
		"c.mp3":      false,
		"d.webm":     false,
		"no-ext":     false,
		"dir/x.wave": false,
	}
	for path, want := range cases {
		if got := IsWAV(path); got != want {
			t.Errorf("IsWAV(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestFFmpegArgs(t *testing.T) {
	c := NewFFmpegConverter("", 16000)
	if c.Binary != "ffmpeg" {
		t.Errorf("Expected default binary ffmpeg, got %q", c.Binary)
	}

	args := strings.Join(c.Args("in.mp3", "out.wav"), " ")
	for _, want := range []string{"-y", "-i in.mp3", "-ac 1", "-ar 16000", "out.wav"} {
		if !strings.Contains(args, want) {
			t.Errorf("Expected %q in args %q", want, args)
		}
	}

	args = strings.Join(NewFFmpegConverter("ffmpeg", 0).Args("in.mp3", "out.wav"), " ")
	if strings.Contains(args, "-ar") {
		t.Errorf("Expected native sample rate when unset, got %q", args)
	}
}

func TestConvertMissingInput(t *testing.T) {
	c := NewFFmpegConverter("ffmpeg", 16000)
	err := c.Convert(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), "out.wav")
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("Expected ErrConversion, got %v", err)
	}
}

func TestConvertBinaryFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp3")
	if err := os.WriteFile(in, []byte("ID3 not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewFFmpegConverter(filepath.Join(dir, "no-such-ffmpeg"), 16000)
	err := c.Convert(context.Background(), in, filepath.Join(dir, "out.wav"))
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("Expected ErrConversion, got %v", err)
	}
}

func TestConvertWithFakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script converter")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	wavData, err := EncodeWAV(make([]int16, 16000), 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if err := os.WriteFile(src, wavData, 0o644); err != nil {
		t.Fatal(err)
	}

	// Copies a known WAV to the last argument
	script := "#!/bin/sh\nfor a in \"$@\"; do out=\"$a\"; done\ncp \"" + src + "\" \"$out\"\n"
	bin := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	in := filepath.Join(dir, "in.webm")
	if err := os.WriteFile(in, []byte("webm"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.wav")

	if err := NewFFmpegConverter(bin, 16000).Convert(context.Background(), in, out); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	info, err := ReadWAVFile(out)
	if err != nil {
		t.Fatalf("ReadWAVFile failed: %v", err)
	}
	if info.Duration != 1.0 {
		t.Errorf("Expected 1s output, got %.3f", info.Duration)
	}
}
