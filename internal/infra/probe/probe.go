// Package probe reads media durations via ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single ffprobe invocation. Probes feed schedule
// projection, so a stuck file must not stall the whole build.
const DefaultTimeout = 1500 * time.Millisecond

var (
	ErrProbeNotFound = errors.New("ffprobe not found in PATH")
	ErrProbeFailed   = errors.New("ffprobe execution failed")
	ErrNoDuration    = errors.New("could not determine media duration")
)

// result mirrors the ffprobe JSON we care about.
type result struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// FFProbe probes media files with the ffprobe binary.
type FFProbe struct {
	timeout time.Duration
}

// New creates a prober. A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration) *FFProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFProbe{timeout: timeout}
}

// Available reports whether ffprobe can be found in PATH.
func Available() error {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrProbeNotFound
	}
	return nil
}

// Duration returns the container duration of the file at path.
func (p *FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, errors.Wrapf(ErrProbeFailed, "timed out probing %s", path)
		}
		if exitErr := (*exec.ExitError)(nil); errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return 0, errors.Wrapf(ErrProbeFailed, "%s: %s", path, string(exitErr.Stderr))
		}
		return 0, errors.Wrapf(ErrProbeFailed, "%s: %v", path, err)
	}

	d, err := extractDuration(output)
	if err != nil {
		return 0, errors.Wrapf(err, "probe of %s", path)
	}

	zlog.Debug().Str("file", path).Dur("duration", d).Msg("probed media duration")
	return d, nil
}

// extractDuration parses the format duration out of ffprobe JSON output.
func extractDuration(output []byte) (time.Duration, error) {
	var r result
	if err := json.Unmarshal(output, &r); err != nil {
		return 0, errors.Wrap(err, "failed to parse ffprobe output")
	}
	if r.Format.Duration == "" {
		return 0, ErrNoDuration
	}
	sec, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil || sec <= 0 {
		return 0, ErrNoDuration
	}
	return time.Duration(sec * float64(time.Second)), nil
}
