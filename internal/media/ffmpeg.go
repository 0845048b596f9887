// Package media wraps the ffmpeg binary.
package media

import (
	"context"
	"fmt"
	"os/exec"
)

type FFmpeg struct {
	Bin string
}

// Available reports whether the ffmpeg binary can be found.
func (f FFmpeg) Available() bool {
	_, err := exec.LookPath(f.bin())
	return err == nil
}

// ToMP3 transcodes an audio file to MP3, overwriting output.
func (f FFmpeg) ToMP3(ctx context.Context, input, output string) error {
	cmd := exec.CommandContext(ctx, f.bin(),
		"-y", "-loglevel", "error",
		"-i", input,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		output,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mp3 encode failed: %w\n%s", err, string(out))
	}
	return nil
}

func (f FFmpeg) bin() string {
	if f.Bin == "" {
		return "ffmpeg"
	}
	return f.Bin
}
