package assembler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
)

// fakeEncoder copies the manifest it is given to $MANIFEST_COPY, writes the
// last argument as the output file and exits with $EXIT_CODE.
const fakeEncoder = `#!/bin/sh
for last; do :; done
echo partial > "$last"
while [ $# -gt 0 ]; do
	if [ "$1" = "-i" ]; then cp "$2" "$MANIFEST_COPY"; fi
	shift
done
exit "${EXIT_CODE:-0}"
`

func setup(t *testing.T) (*FFmpeg, string, []string) {
	t.Helper()

	dir := t.TempDir()
	bin := filepath.Join(dir, "encoder.sh")
	require.NoError(t, os.WriteFile(bin, []byte(fakeEncoder), 0o755))

	sessionDir := filepath.Join(dir, "session")
	require.NoError(t, os.MkdirAll(sessionDir, os.ModePerm))

	var frames []string
	for _, name := range []string{"cam-1.jpeg", "cam-2.jpeg", "it's-3.jpeg"} {
		p := filepath.Join(sessionDir, name)
		require.NoError(t, os.WriteFile(p, []byte("jpeg"), 0o644))
		frames = append(frames, p)
	}

	t.Setenv("MANIFEST_COPY", filepath.Join(dir, "manifest.copy"))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(log, bin, "1920x1080"), sessionDir, frames
}

func TestAssemble_Success(t *testing.T) {
	a, sessionDir, frames := setup(t)
	t.Setenv("EXIT_CODE", "0")

	output := filepath.Join(sessionDir, "cam-2024-05-01_09-00-00.mp4")
	require.NoError(t, a.Assemble(context.Background(), frames, 24, output))

	assert.FileExists(t, output)
	assert.NoFileExists(t, filepath.Join(sessionDir, ManifestName))

	manifest, err := os.ReadFile(os.Getenv("MANIFEST_COPY"))
	require.NoError(t, err)
	assert.Equal(t,
		"file '"+frames[0]+"'\n"+
			"file '"+frames[1]+"'\n"+
			"file '"+filepath.Join(sessionDir, `it'\''s-3.jpeg`)+"'\n",
		string(manifest))
}

func TestAssemble_EncoderFailure(t *testing.T) {
	a, sessionDir, frames := setup(t)
	t.Setenv("EXIT_CODE", "3")

	output := filepath.Join(sessionDir, "out.mp4")
	err := a.Assemble(context.Background(), frames, 60, output)

	var encErr *errs.EncodingFailedError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 3, encErr.ExitCode)

	assert.NoFileExists(t, output, "partial output must be removed")
	assert.NoFileExists(t, filepath.Join(sessionDir, ManifestName))

	for _, f := range frames {
		assert.FileExists(t, f)
	}
}

func TestAssemble_MissingEncoder(t *testing.T) {
	_, sessionDir, frames := setup(t)
	a := New(slog.New(slog.NewTextHandler(io.Discard, nil)), filepath.Join(t.TempDir(), "nope"), "")

	err := a.Assemble(context.Background(), frames, 60, filepath.Join(sessionDir, "out.mp4"))

	var encErr *errs.EncodingFailedError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, -1, encErr.ExitCode)
	assert.NoFileExists(t, filepath.Join(sessionDir, ManifestName))
}

func TestAssemble_NoFrames(t *testing.T) {
	a, sessionDir, _ := setup(t)

	err := a.Assemble(context.Background(), nil, 60, filepath.Join(sessionDir, "out.mp4"))
	assert.ErrorIs(t, err, errs.ErrNoFrames)
}

func TestArguments(t *testing.T) {
	a := New(slog.Default(), "ffmpeg", "1920x1080")

	assert.Equal(t, []string{
		"-y", "-r", "30", "-f", "concat", "-safe", "0", "-i", "list.txt",
		"-s", "1920x1080", "-vcodec", "libx264", "-pix_fmt", "yuv420p", "out.mp4",
	}, a.arguments("list.txt", 30, "out.mp4"))
}
