package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/zanzhit/timelapse_recorder/internal/config"
	"github.com/zanzhit/timelapse_recorder/internal/services/assembler"
	captureservice "github.com/zanzhit/timelapse_recorder/internal/services/capture"
	fsstorage "github.com/zanzhit/timelapse_recorder/internal/storage/fs"
)

var (
	assembleDir       string
	assembleFramerate int
	assembleOutput    string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble the frames of an existing session directory into a video",
	RunE: func(cmd *cobra.Command, args []string) error {
		encoder, resolution, env := "ffmpeg", "1920x1080", envLocal
		if path := config.PathOrEnv(configPath); path != "" {
			cfg := config.MustLoadPath(path)
			encoder, resolution, env = cfg.Capture.Encoder, cfg.Capture.Resolution, cfg.Env
			if !cmd.Flags().Changed("framerate") {
				assembleFramerate = cfg.Capture.Framerate
			}
		}

		return assemble(cmd.Context(), assembler.New(setupLogger(env), encoder, resolution))
	},
}

func init() {
	assembleCmd.Flags().StringVar(&assembleDir, "dir", "", "session directory holding the frames")
	assembleCmd.Flags().IntVar(&assembleFramerate, "framerate", 60, "output video framerate")
	assembleCmd.Flags().StringVar(&assembleOutput, "output", "", "output video path (defaults to the session video name inside --dir)")
	assembleCmd.MarkFlagRequired("dir")
}

func assemble(ctx context.Context, a *assembler.FFmpeg) error {
	frames, err := fsstorage.New().FramePaths(assembleDir)
	if err != nil {
		return err
	}

	output := assembleOutput
	if output == "" {
		output = filepath.Join(assembleDir, defaultVideoName(assembleDir))
	}

	if err := a.Assemble(ctx, frames, assembleFramerate, output); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "assembled %d frames into %s\n", len(frames), output)

	return nil
}

// defaultVideoName derives the name from snapshots/<device>/<session> when
// the directory follows that layout.
func defaultVideoName(dir string) string {
	dir = filepath.Clean(dir)

	startedAt, err := time.ParseInLocation(fsstorage.SessionLayout, filepath.Base(dir), time.Local)
	if err != nil {
		return "timelapse.mp4"
	}

	return captureservice.VideoName(filepath.Base(filepath.Dir(dir)), startedAt)
}
