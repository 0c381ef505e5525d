package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Options locates the ffmpeg binaries.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
}

// Executor runs ffmpeg and ffprobe.
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New resolves the binaries and creates an executor. Empty paths fall back
// to ffmpeg and ffprobe on PATH.
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ffprobePath, err := exec.LookPath(opts.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

func (e *Executor) baseArgs() []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	return append(args, "-progress", "pipe:2")
}

// Run executes ffmpeg to completion. Stdout and stderr lines both go to
// opts.LogHandler, possibly from different goroutines.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	proc, err := e.Stream(ctx, opts)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(proc.Stdout)
	for scanner.Scan() {
		if opts.LogHandler != nil {
			opts.LogHandler(scanner.Text())
		}
	}

	if err := proc.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	e.logger.Debug().Msg("ffmpeg finished")
	return nil
}

// Stream starts ffmpeg with stdout connected to the returned reader. The
// caller reads stdout to EOF, then calls Wait on the returned process.
func (e *Executor) Stream(ctx context.Context, opts RunOptions) (*Process, error) {
	if len(opts.Args) == 0 {
		return nil, fmt.Errorf("no arguments provided")
	}

	args := append(e.baseArgs(), opts.Args...)
	e.logger.Debug().Strs("args", args).Msg("streaming ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &Process{cmd: cmd, Stdout: stdout, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		e.streamOutput(stderr, opts.ProgressHandler, func(line string) {
			p.recordLine(line)
			if opts.LogHandler != nil {
				opts.LogHandler(line)
			}
		})
	}()
	return p, nil
}

// Process is a running ffmpeg whose stdout is consumed by the caller.
type Process struct {
	cmd    *exec.Cmd
	Stdout io.ReadCloser
	done   chan struct{}

	mu   sync.Mutex
	tail []string
}

const stderrTail = 10

func (p *Process) recordLine(line string) {
	if strings.Contains(line, "=") && !strings.Contains(line, " ") {
		return // progress key=value
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tail = append(p.tail, line)
	if len(p.tail) > stderrTail {
		p.tail = p.tail[len(p.tail)-stderrTail:]
	}
}

// Wait waits for ffmpeg to exit. A failure includes the last stderr lines.
func (p *Process) Wait() error {
	<-p.done
	if err := p.cmd.Wait(); err != nil {
		p.mu.Lock()
		tail := strings.Join(p.tail, "\n")
		p.mu.Unlock()
		if tail != "" {
			return fmt.Errorf("ffmpeg execution failed: %w\n%s", err, tail)
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}
	return nil
}

// Kill stops ffmpeg early and reaps it.
func (p *Process) Kill() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.Stdout.Close()
	<-p.done
	_ = p.cmd.Wait()
	return nil
}

// streamOutput forwards every stderr line to onLine and folds the
// "-progress" key=value blocks into one Progress per block.
func (e *Executor) streamOutput(r io.Reader, onProgress func(*Progress), onLine func(string)) {
	scanner := bufio.NewScanner(r)
	cur := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()
		if onLine != nil {
			onLine(line)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "frame":
			cur.Frame, _ = strconv.Atoi(value)
		case "fps":
			cur.FPS, _ = strconv.ParseFloat(value, 64)
		case "out_time":
			cur.Time = value
		case "speed":
			cur.Speed = value
		case "progress":
			cur.Done = value == "end"
			if onProgress != nil && cur.Frame > 0 {
				onProgress(cur)
			}
			cur = &Progress{}
		}
	}
}
