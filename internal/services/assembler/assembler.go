package assembler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

const ManifestName = "filelist.txt"

type FFmpeg struct {
	log        *slog.Logger
	binary     string
	resolution string
}

func New(log *slog.Logger, binary, resolution string) *FFmpeg {
	return &FFmpeg{
		log:        log,
		binary:     binary,
		resolution: resolution,
	}
}

// Assemble encodes frames, in the given order, into a single video at output.
func (a *FFmpeg) Assemble(ctx context.Context, frames []string, framerate int, output string) error {
	const op = "services.assembler.Assemble"

	log := a.log.With(
		slog.String("op", op),
		slog.String("output", output),
		slog.Int("frames", len(frames)),
		slog.Int("framerate", framerate),
	)

	if len(frames) == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNoFrames)
	}

	if framerate <= 0 {
		return fmt.Errorf("%s: %w: framerate %d", op, errs.ErrInvalidConfiguration, framerate)
	}

	manifest := filepath.Join(filepath.Dir(output), ManifestName)
	if err := writeManifest(manifest, frames); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}
	defer os.Remove(manifest)

	args := a.arguments(manifest, framerate, output)

	log.Info("start encoding")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(output)

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Error("encoder exited with error", slog.Int("exit_code", exitErr.ExitCode()), slog.String("stderr", tail(stderr.String())))

			return fmt.Errorf("%s: %w", op, &errs.EncodingFailedError{
				ExitCode: exitErr.ExitCode(),
				Output:   tail(stderr.String()),
			})
		}

		log.Error("failed to run encoder", sl.Err(err))

		return fmt.Errorf("%s: %w", op, &errs.EncodingFailedError{ExitCode: -1, Output: err.Error()})
	}

	if _, err := os.Stat(output); err != nil {
		log.Error("encoder produced no output", sl.Err(err))

		return fmt.Errorf("%s: %w", op, &errs.EncodingFailedError{ExitCode: 0, Output: "no output file"})
	}

	log.Info("video assembled")

	return nil
}

func (a *FFmpeg) arguments(manifest string, framerate int, output string) []string {
	args := []string{
		"-y",
		"-r", strconv.Itoa(framerate),
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
	}

	if a.resolution != "" {
		args = append(args, "-s", a.resolution)
	}

	return append(args,
		"-vcodec", "libx264",
		"-pix_fmt", "yuv420p",
		output,
	)
}

func writeManifest(path string, frames []string) error {
	var b strings.Builder
	for _, frame := range frames {
		abs, err := filepath.Abs(frame)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func tail(s string) string {
	const limit = 2048
	if len(s) > limit {
		return s[len(s)-limit:]
	}
	return s
}
