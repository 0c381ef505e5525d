package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestResults stores results from all tests for final summary
type TestResults struct {
	ExecutorPath string
	ProbeResults *VideoInfo
	FramesRead   int
	ScenesFound  int
	Errors       []string
}

var globalResults = &TestResults{
	Errors: make([]string, 0),
}

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	skipIfNoFFmpeg(t)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	e, err := New(logger, Options{Threads: 2})
	if err != nil {
		globalResults.Errors = append(globalResults.Errors, fmt.Sprintf("Executor creation failed: %v", err))
		t.Fatalf("failed to create executor: %v", err)
	}
	globalResults.ExecutorPath = e.ffmpegPath
	return e
}

// synthVideo renders a two-shot test clip: 1s of testsrc followed by 1s of
// a flat color, at 10 fps and 160x120.
func synthVideo(t *testing.T, e *Executor) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "two_shots.mp4")
	err := e.Run(context.Background(), RunOptions{Args: []string{
		"-f", "lavfi", "-i", "testsrc=size=160x120:rate=10:duration=1",
		"-f", "lavfi", "-i", "color=c=blue:size=160x120:rate=10:duration=1",
		"-filter_complex", "[0:v][1:v]concat=n=2:v=1[v]",
		"-map", "[v]", "-pix_fmt", "yuv420p",
		out,
	}})
	if err != nil {
		t.Fatalf("failed to synthesize video: %v", err)
	}
	return out
}

func TestExecutorCreation(t *testing.T) {
	e := newTestExecutor(t)
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
	t.Logf("ffmpeg: %s", e.ffmpegPath)
}

func TestExecutorMissingBinary(t *testing.T) {
	_, err := New(zerolog.Nop(), Options{FFmpegPath: "definitely-not-ffmpeg-binary"})
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}
}

func TestProbeAndDecode(t *testing.T) {
	e := newTestExecutor(t)
	input := synthVideo(t, e)
	ctx := context.Background()

	info, err := e.ProbeVideo(ctx, input)
	if err != nil {
		t.Fatalf("ProbeVideo failed: %v", err)
	}
	globalResults.ProbeResults = info
	if info.Width != 160 || info.Height != 120 {
		t.Errorf("expected 160x120, got %dx%d", info.Width, info.Height)
	}
	if info.FPS < 9.9 || info.FPS > 10.1 {
		t.Errorf("expected 10 fps, got %.2f", info.FPS)
	}

	src, err := e.OpenGray(ctx, input, DecodeOptions{MaxWidth: 80})
	if err != nil {
		t.Fatalf("OpenGray failed: %v", err)
	}
	defer src.Close()

	if w, h := src.Size(); w != 80 || h != 60 {
		t.Errorf("expected 80x60 frames, got %dx%d", w, h)
	}

	n := 0
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed after %d frames: %v", n, err)
		}
		if f.Index != n {
			t.Errorf("frame %d has index %d", n, f.Index)
		}
		n++
	}
	globalResults.FramesRead = n
	if n < 19 || n > 21 {
		t.Errorf("expected about 20 frames, got %d", n)
	}
}

func TestDecodeMaxFrames(t *testing.T) {
	e := newTestExecutor(t)
	input := synthVideo(t, e)
	ctx := context.Background()

	src, err := e.OpenGray(ctx, input, DecodeOptions{MaxFrames: 5})
	if err != nil {
		t.Fatalf("OpenGray failed: %v", err)
	}
	defer src.Close()

	n := 0
	for ; ; n++ {
		if _, err := src.Next(ctx); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("Next failed: %v", err)
			}
			break
		}
	}
	if n != 5 {
		t.Errorf("expected 5 frames, got %d", n)
	}
}

func TestDetectScenes(t *testing.T) {
	e := newTestExecutor(t)
	input := synthVideo(t, e)

	scenes, err := e.DetectScenes(context.Background(), input, 0.3)
	if err != nil {
		t.Fatalf("DetectScenes failed: %v", err)
	}
	globalResults.ScenesFound = len(scenes)
	if len(scenes) == 0 {
		t.Fatal("expected the shot change to be found")
	}
	for _, s := range scenes {
		if s < 900*time.Millisecond || s > 1100*time.Millisecond {
			t.Errorf("unexpected scene change at %v", s)
		}
	}
}

func TestProbeVideoInvalidFile(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	if _, err := e.ProbeVideo(ctx, "nonexistent.mp4"); err == nil {
		t.Error("ProbeVideo should fail for non-existent file")
	}

	invalidPath := filepath.Join(t.TempDir(), "invalid.txt")
	os.WriteFile(invalidPath, []byte("not a video"), 0644)

	if _, err := e.ProbeVideo(ctx, invalidPath); err == nil {
		t.Error("ProbeVideo should fail for invalid video file")
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 640, "height": 360,
			 "r_frame_rate": "30/1", "avg_frame_rate": "30000/1001", "nb_frames": "300"}
		],
		"format": {"duration": "10.500000"}
	}`)

	info, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if info.Width != 640 || info.Height != 360 {
		t.Errorf("unexpected size %dx%d", info.Width, info.Height)
	}
	if info.FPS < 29.96 || info.FPS > 29.98 {
		t.Errorf("expected avg frame rate ~29.97, got %f", info.FPS)
	}
	if info.Frames != 300 {
		t.Errorf("expected 300 frames, got %d", info.Frames)
	}
	if info.Duration != 10500*time.Millisecond {
		t.Errorf("unexpected duration %v", info.Duration)
	}

	if _, err := parseProbe([]byte(`{"streams": []}`)); err == nil {
		t.Error("expected an error without a video stream")
	}
}

func TestParseSceneLine(t *testing.T) {
	tests := []struct {
		line   string
		want   time.Duration
		wantOK bool
	}{
		{"[Parsed_showinfo_1 @ 0x1] n:   0 pts:  12800 pts_time:1       duration:512", time.Second, true},
		{"[Parsed_showinfo_1 @ 0x1] n:   1 pts:  40960 pts_time:3.2     duration:512", 3200 * time.Millisecond, true},
		{"frame=   1 fps=0.0 q=-0.0 size=N/A", 0, false},
		{"[Parsed_showinfo_1 @ 0x1] pts_time:", 0, false},
		{"[Parsed_showinfo_1 @ 0x1] pts_time:abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseSceneLine(tt.line)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseSceneLine(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFilterBuilder(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.Scale(1920, 1080).FPS(30).Build()

	expected := "scale=1920:1080,fps=30"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestFilterBuilderEmpty(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.Build()

	if filter != "" {
		t.Errorf("expected empty string, got %q", filter)
	}
}

func TestFilterBuilderSkipsInvalid(t *testing.T) {
	filter := NewFilterBuilder().FPS(0).Scale(0, 10).Format("gray").Build()

	if filter != "format=gray" {
		t.Errorf("expected %q, got %q", "format=gray", filter)
	}
}

func TestFilterBuilderSceneSelect(t *testing.T) {
	filter := NewFilterBuilder().SceneSelect(0.4).Build()

	expected := "select='gt(scene,0.4)',showinfo"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestFilterBuilderPadEven(t *testing.T) {
	filter := NewFilterBuilder().PadEven().Format("yuv420p").Build()

	expected := "pad=ceil(iw/2)*2:ceil(ih/2)*2,format=yuv420p"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestStreamOutputProgress(t *testing.T) {
	input := strings.Join([]string{
		"Input #0, lavfi",
		"frame=12",
		"fps=24.5",
		"out_time=00:00:00.480000",
		"speed=1.9x",
		"progress=continue",
		"frame=25",
		"progress=end",
	}, "\n")

	e := &Executor{logger: zerolog.Nop()}
	var reports []Progress
	var lines int
	e.streamOutput(strings.NewReader(input), func(p *Progress) {
		reports = append(reports, *p)
	}, func(string) { lines++ })

	if lines != 8 {
		t.Errorf("expected every line forwarded, got %d", lines)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 progress reports, got %d", len(reports))
	}
	first := reports[0]
	if first.Frame != 12 || first.FPS != 24.5 || first.Time != "00:00:00.480000" || first.Speed != "1.9x" || first.Done {
		t.Errorf("unexpected first report %+v", first)
	}
	if reports[1].Frame != 25 || !reports[1].Done {
		t.Errorf("unexpected final report %+v", reports[1])
	}
}

// TestMain runs after all tests and prints summary
func TestMain(m *testing.M) {
	code := m.Run()

	printTestSummary()

	os.Exit(code)
}

func printTestSummary() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("TEST SUMMARY - FFmpeg Layer")
	fmt.Println(strings.Repeat("=", 80))

	if globalResults.ExecutorPath != "" {
		fmt.Printf("\nFFmpeg Binary: %s\n", globalResults.ExecutorPath)
	}

	if globalResults.ProbeResults != nil {
		fmt.Println("\nVIDEO PROBE RESULTS:")
		fmt.Printf("  Resolution:    %dx%d @ %.2f fps\n",
			globalResults.ProbeResults.Width,
			globalResults.ProbeResults.Height,
			globalResults.ProbeResults.FPS)
		fmt.Printf("  Duration:      %v\n", globalResults.ProbeResults.Duration)
		fmt.Printf("  Video Codec:   %s\n", globalResults.ProbeResults.VideoCodec)
	}

	fmt.Printf("\n  Frames decoded:  %d\n", globalResults.FramesRead)
	fmt.Printf("  Scene changes:   %d\n", globalResults.ScenesFound)

	if len(globalResults.Errors) > 0 {
		fmt.Println("\nERRORS ENCOUNTERED:")
		for i, err := range globalResults.Errors {
			fmt.Printf("  %d. %s\n", i+1, err)
		}
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}
