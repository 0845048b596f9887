package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prepit/audioproc/internal/audio"
	"github.com/prepit/audioproc/internal/media"
	"github.com/prepit/audioproc/internal/transcript"
)

var processCmd = &cobra.Command{
	Use:   "process <recording.wav> <metadata.json>",
	Short: "Cut a recording into one clip per chat message",
	Args:  cobra.ExactArgs(2),
	RunE:  runProcess,
}

var (
	outputDir string
	format    string
	ffmpegBin string
)

func init() {
	processCmd.Flags().StringVarP(&outputDir, "output", "o", "./processed_media", "output directory")
	processCmd.Flags().StringVarP(&format, "format", "f", "wav", "clip format: wav or mp3")
	processCmd.Flags().StringVar(&ffmpegBin, "ffmpeg", "ffmpeg", "ffmpeg binary used for mp3 output")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	wavPath, metadataPath := args[0], args[1]

	if format != "wav" && format != "mp3" {
		return fmt.Errorf("unsupported format %q (want wav or mp3)", format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := loadResult(metadataPath)
	if errors.Is(err, transcript.ErrNothingToProcess) {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to process: no transcript or no chat messages")
		return nil
	}
	if err != nil {
		return err
	}

	wf, err := audio.Decode(wavPath)
	if err != nil {
		return err
	}

	var transcoder audio.Transcoder
	if format == "mp3" {
		ff := media.FFmpeg{Bin: ffmpegBin}
		if !ff.Available() {
			return fmt.Errorf("mp3 output needs %s on PATH", ffmpegBin)
		}
		transcoder = ff
	}

	cutter := audio.NewCutter(audio.Options{OutputDir: outputDir, Format: format}, nil, nil, nil, transcoder, nil)
	report := cutter.Cut(ctx, wf, res)

	resultPath, err := cutter.WriteResult(ctx, res)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range report.Clips {
		fmt.Fprintf(out, "%-24s %6.2fs  %s\n", c.MessageID, c.Seconds, c.Path)
	}
	for _, id := range report.Skipped {
		fmt.Fprintf(out, "%-24s skipped (outside recording)\n", id)
	}
	fmt.Fprintf(out, "result: %s\n", resultPath)

	return report.Err()
}

func loadResult(metadataPath string) (*transcript.Result, error) {
	md, err := transcript.LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	return transcript.Process(md)
}
