package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Nexitus/KotoSub/internal/media"
)

func TestProbeParsesStreams(t *testing.T) {
	svc := NewService("", "")
	svc.WithOutputRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Errorf("binary = %q, want ffprobe", name)
		}
		return []byte(`{
			"streams": [
				{"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
				{"index": 1, "codec_type": "audio", "codec_name": "aac"}
			],
			"format": {"duration": "123.456"}
		}`), nil
	})

	info, err := svc.Validate(context.Background(), "/tmp/movie.mkv")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Fatalf("info = %+v, want both streams", info)
	}
	if info.AudioStreamIndex != 1 {
		t.Fatalf("audio index = %d, want 1", info.AudioStreamIndex)
	}
	if info.DurationSeconds != 123.456 {
		t.Fatalf("duration = %v", info.DurationSeconds)
	}
	if info.VideoCodec != "h264" || info.Width != 1920 {
		t.Fatalf("video = %q %dx%d", info.VideoCodec, info.Width, info.Height)
	}
}

func TestValidateRejectsMissingStreams(t *testing.T) {
	svc := NewService("", "")
	svc.WithOutputRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"streams":[{"index":0,"codec_type":"video","codec_name":"h264"}],"format":{"duration":"10"}}`), nil
	})
	if _, err := svc.Validate(context.Background(), "/tmp/silent.mkv"); err == nil {
		t.Fatal("expected error for missing audio stream")
	}
}

func TestBuildExtractArgsFilters(t *testing.T) {
	args := buildExtractArgs("in.mkv", 1, "out.wav", ExtractOptions{Denoise: true, LoudnessNormalize: true})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-af afftdn=nf=-25,loudnorm") {
		t.Fatalf("args missing audio filters: %s", joined)
	}
	if !strings.Contains(joined, "-map 0:1") {
		t.Fatalf("args missing stream map: %s", joined)
	}
	if !strings.Contains(joined, "-ac 1 -ar 16000 -c:a pcm_s16le") {
		t.Fatalf("args missing WAV conditioning: %s", joined)
	}

	plain := strings.Join(buildExtractArgs("in.mkv", 1, "out.wav", ExtractOptions{}), " ")
	if strings.Contains(plain, "-af") {
		t.Fatalf("filters applied when disabled: %s", plain)
	}
}

func TestExtractAudioRejectsBadIndex(t *testing.T) {
	svc := NewService("", "")
	if err := svc.ExtractAudio(context.Background(), "in.mkv", -1, "out.wav", ExtractOptions{}); err == nil {
		t.Fatal("expected error for negative stream index")
	}
}

func TestAlignmentFor(t *testing.T) {
	if got := AlignmentFor("Top Center"); got != 8 {
		t.Fatalf("AlignmentFor(Top Center) = %d, want 8", got)
	}
	if got := AlignmentFor("nowhere"); got != 2 {
		t.Fatalf("AlignmentFor fallback = %d, want 2", got)
	}
}

func TestBurnFallsBackToX264(t *testing.T) {
	var encoders []string
	svc := NewService("", "")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		for i, arg := range args {
			if arg == "-c:v" && i+1 < len(args) {
				encoders = append(encoders, args[i+1])
				if args[i+1] == EncoderNVENC {
					return errors.New("nvenc not available")
				}
			}
		}
		return nil
	})

	style := media.Style{Font: "Arial", FontSize: 24, Position: "Bottom Center", Outline: 1, Shadow: 1}
	encoder, err := svc.Burn(context.Background(), "in.mkv", "subs.ass", "out.mkv", BurnOptions{Style: style, UseGPU: true})
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if encoder != EncoderX264 {
		t.Fatalf("encoder = %q, want fallback to %q", encoder, EncoderX264)
	}
	if len(encoders) != 2 || encoders[0] != EncoderNVENC {
		t.Fatalf("encoder attempts = %v", encoders)
	}
}

func TestBuildSubtitleFilterEscapesPath(t *testing.T) {
	style := media.Style{Font: "Noto Sans", FontSize: 28, Position: "Top Center", Outline: 1.5, Shadow: 0}
	filter := buildSubtitleFilter(`C:\subs\it's.ass`, style)
	if !strings.Contains(filter, `C\:\\subs\\it\'s.ass`) {
		t.Fatalf("path not escaped: %s", filter)
	}
	if !strings.Contains(filter, "FontName=Noto Sans,FontSize=28,Alignment=8,Outline=1.5,Shadow=0") {
		t.Fatalf("force_style wrong: %s", filter)
	}
}
