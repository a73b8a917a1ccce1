package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/media"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceLang  string
		targetLang  string
		formats     []string
		diarize     bool
		noVerify    bool
		burn        bool
		concurrency int
		suffix      string
		noLangCode  bool
		font        string
		fontSize    int
		position    string
	)

	cmd := &cobra.Command{
		Use:   "process VIDEO",
		Short: "Submit a video for subtitle translation and follow its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("video file %s: %w", source, err)
			}

			jobCfg := media.DefaultJobConfig()
			if sourceLang != "" {
				jobCfg.SourceLang = sourceLang
			}
			if targetLang != "" {
				jobCfg.TargetLang = targetLang
			}
			if len(formats) > 0 {
				jobCfg.Formats = formats
			}
			jobCfg.EnableDiarization = diarize
			jobCfg.QualityVerification = !noVerify
			jobCfg.BurnSubtitles = burn
			if concurrency > 0 {
				jobCfg.Concurrency = concurrency
			}
			jobCfg.OutputSuffix = suffix
			jobCfg.IncludeLangCode = !noLangCode
			if font != "" {
				jobCfg.Style.Font = font
			}
			if fontSize > 0 {
				jobCfg.Style.FontSize = fontSize
			}
			if position != "" {
				jobCfg.Style.Position = position
			}
			if err := jobCfg.Normalize(); err != nil {
				return err
			}
			configJSON, err := jobCfg.Encode()
			if err != nil {
				return err
			}

			url, err := ctx.apiURL("/api/translate")
			if err != nil {
				return err
			}
			return submitAndFollow(cmd, url, source, configJSON)
		},
	}

	cmd.Flags().StringVar(&sourceLang, "source-lang", "", "Source language code (default: auto-detect)")
	cmd.Flags().StringVarP(&targetLang, "target-lang", "t", "", "Target language code")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Subtitle formats to produce (srt, ass, vtt)")
	cmd.Flags().BoolVar(&diarize, "diarize", false, "Assign speaker labels via diarization")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip the translation verification pass")
	cmd.Flags().BoolVar(&burn, "burn", false, "Burn subtitles into a new video file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Translation worker count override")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Suffix appended to output file names")
	cmd.Flags().BoolVar(&noLangCode, "no-lang-code", false, "Omit the language code from output file names")
	cmd.Flags().StringVar(&font, "font", "", "Subtitle font for ASS and burn-in output")
	cmd.Flags().IntVar(&fontSize, "font-size", 0, "Subtitle font size")
	cmd.Flags().StringVar(&position, "position", "", "Subtitle position (e.g. \"Bottom Center\")")

	return cmd
}

// submitAndFollow streams the video to the server as multipart form data and
// renders the NDJSON progress stream until the job finishes.
func submitAndFollow(cmd *cobra.Command, url, source, configJSON string) error {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeSubmission(writer, source, configJSON)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Deliberately no timeout: the response streams for the lifetime of
	// the job.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	return renderProgress(cmd.OutOrStdout(), resp.Body)
}

func writeSubmission(writer *multipart.Writer, source, configJSON string) error {
	if err := writer.WriteField("config", configJSON); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("video", filepath.Base(source))
	if err != nil {
		return err
	}
	file, err := os.Open(source)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(part, file)
	return err
}

// renderProgress consumes the NDJSON event stream. On a TTY running stage
// updates rewrite the current line; elsewhere every event gets its own line.
func renderProgress(out io.Writer, body io.Reader) error {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineOpen := false
	for scanner.Scan() {
		var event events.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}

		if event.Terminal() {
			if lineOpen {
				fmt.Fprintln(out)
			}
			return renderOutcome(out, event)
		}

		message := event.Message
		if message == "" {
			message = event.Step
		}
		if interactive {
			fmt.Fprintf(out, "\r\033[K[%s] %3d%% %s", event.Step, event.Progress, message)
			lineOpen = true
		} else {
			fmt.Fprintf(out, "[%s] %d%% %s\n", event.Step, event.Progress, message)
		}
	}
	if lineOpen {
		fmt.Fprintln(out)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read progress stream: %w", err)
	}
	return fmt.Errorf("progress stream ended before the job finished")
}

func renderOutcome(out io.Writer, event events.Event) error {
	switch event.Status {
	case events.StatusCompleted:
		var result struct {
			Subtitles map[string]string `json:"subtitles"`
			Video     string            `json:"video"`
			Language  string            `json:"language"`
		}
		if err := json.Unmarshal(event.Result, &result); err != nil {
			return fmt.Errorf("decode job result: %w", err)
		}
		if result.Language != "" {
			fmt.Fprintf(out, "Detected language: %s\n", result.Language)
		}
		for _, format := range []string{media.FormatSRT, media.FormatASS, media.FormatVTT} {
			if path, ok := result.Subtitles[format]; ok {
				fmt.Fprintf(out, "Subtitle (%s): %s\n", strings.ToUpper(format), path)
			}
		}
		if result.Video != "" {
			fmt.Fprintf(out, "Video: %s\n", result.Video)
		}
		return nil
	case events.StatusCancelled:
		return fmt.Errorf("job cancelled")
	default:
		if event.Message != "" {
			return fmt.Errorf("job failed: %s", event.Message)
		}
		return fmt.Errorf("job failed")
	}
}
