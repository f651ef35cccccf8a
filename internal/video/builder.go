// Package video assembles an ordered frame sequence into a single playable
// MP4 using ffmpeg's concat demuxer.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNoFFmpeg is returned when no ffmpeg binary is available.
var ErrNoFFmpeg = errors.New("ffmpeg not available")

// OutputName is the deterministic artifact name per session. Overwriting one
// well-known name keeps stale artifacts from accumulating; cache busting is
// the playback side's job.
const OutputName = "latest.mp4"

// Ramp controls how playback speed grows with frame count.
type Ramp struct {
	MinFPS         float64
	MaxFPS         float64
	HalfLifeFrames int
}

// DefaultRamp starts slow enough for short kid-made clips to read clearly
// and caps at classic stop-motion smoothness.
var DefaultRamp = Ramp{MinFPS: 1.0, MaxFPS: 8.0, HalfLifeFrames: 40}

// FPS returns the playback rate for a clip of n frames, easing out
// exponentially from MinFPS toward MaxFPS.
func (r Ramp) FPS(n int) float64 {
	return r.MinFPS + (r.MaxFPS-r.MinFPS)*(1.0-math.Exp(-float64(n)/float64(r.HalfLifeFrames)))
}

// Builder runs ffmpeg builds. The zero value is not usable; call NewBuilder.
type Builder struct {
	ffmpeg string
	ramp   Ramp
	logger *log.Logger
}

// NewBuilder locates ffmpeg (at the given path, or on PATH when empty) and
// returns a builder. A missing binary is not fatal here; Build reports
// ErrNoFFmpeg so the API can answer 503 instead of the process dying.
func NewBuilder(ffmpegPath string, ramp Ramp, logger *log.Logger) *Builder {
	if ffmpegPath == "" {
		if found, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = found
		}
	}
	if ramp.MinFPS <= 0 || ramp.MaxFPS <= 0 || ramp.HalfLifeFrames <= 0 {
		ramp = DefaultRamp
	}
	return &Builder{ffmpeg: ffmpegPath, ramp: ramp, logger: logger}
}

// Build concatenates framePaths, in order, into outDir/latest.mp4 and returns
// the artifact filename. Previous mp4s in outDir are removed first so the
// directory only ever holds the newest artifact.
func (b *Builder) Build(ctx context.Context, framePaths []string, outDir string) (string, error) {
	if b.ffmpeg == "" {
		return "", ErrNoFFmpeg
	}
	if len(framePaths) == 0 {
		return "", errors.New("no frames to build")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create video dir: %w", err)
	}

	old, _ := filepath.Glob(filepath.Join(outDir, "*.mp4"))
	for _, p := range old {
		if err := os.Remove(p); err != nil {
			b.logger.Printf("Warning: could not remove old artifact %s: %v", p, err)
		}
	}

	fps := b.ramp.FPS(len(framePaths))
	frameSec := 1.0 / math.Max(fps, 0.001)

	listPath := filepath.Join(outDir, fmt.Sprintf("list_%s.txt", uuid.NewString()))
	var list bytes.Buffer
	writeConcatList(&list, framePaths, frameSec)
	if err := os.WriteFile(listPath, list.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	outPath := filepath.Join(outDir, OutputName)
	cmd := exec.CommandContext(ctx, b.ffmpeg,
		"-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-vsync", "vfr",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	b.logger.Printf("Building video: %d frames at %.2f fps", len(framePaths), fps)
	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > 4000 {
			msg = msg[:4000]
		}
		return "", fmt.Errorf("ffmpeg failed: %v: %s", err, msg)
	}
	return OutputName, nil
}

// writeConcatList emits the concat demuxer input: each frame with a duration
// line, then the last frame repeated once with no duration, which the concat
// demuxer requires for the final frame to be preserved.
func writeConcatList(w io.Writer, framePaths []string, frameSec float64) {
	for _, p := range framePaths {
		fmt.Fprintf(w, "file '%s'\n", escapeConcatPath(p))
		fmt.Fprintf(w, "duration %.6f\n", frameSec)
	}
	fmt.Fprintf(w, "file '%s'\n", escapeConcatPath(framePaths[len(framePaths)-1]))
}

func escapeConcatPath(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`)
}
