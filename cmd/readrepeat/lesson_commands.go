package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"readrepeat/internal/lesson"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <lesson.yaml>",
		Short: "Segment, align, and slice a lesson described by a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, err := loadLessonFile(args[0])
			if err != nil {
				return err
			}
			l, err := lf.toLesson()
			if err != nil {
				return err
			}
			logger, err := ctx.cliLogger()
			if err != nil {
				return err
			}
			p, err := ctx.processor(logger)
			if err != nil {
				return err
			}
			records, err := p.Process(cmd.Context(), l)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, records)
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output sentence records as JSON")
	return cmd
}

func newResliceCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "reslice <lesson.yaml>",
		Short: "Cut clips again from the sentence timings listed in a lesson file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, err := loadLessonFile(args[0])
			if err != nil {
				return err
			}
			if len(lf.Sentences) == 0 {
				return errors.New("lesson file has no sentences to reslice")
			}
			logger, err := ctx.cliLogger()
			if err != nil {
				return err
			}
			p, err := ctx.processor(logger)
			if err != nil {
				return err
			}
			updates, err := p.Reslice(cmd.Context(), lf.ID, lf.resolve(lf.Audio), lf.timings())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, updates)
			}
			rows := make([][]string, len(updates))
			for i, u := range updates {
				rows[i] = []string{u.ID, u.ClipPath}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Sentence", "Clip"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output clip updates as JSON")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var language string
	var model string

	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe an audio file with word timings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.cliLogger()
			if err != nil {
				return err
			}
			p, err := ctx.processor(logger)
			if err != nil {
				return err
			}
			report, err := p.Transcribe(cmd.Context(), lesson.TranscribeRequest{
				AudioFileID: args[0],
				AudioPath:   args[0],
				Language:    language,
				Model:       model,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "Spoken language (detected when empty)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Whisper model (defaults to whisper.model)")
	return cmd
}

func newSpeakCommand(ctx *commandContext) *cobra.Command {
	var provider, voice, voice2, model string
	var dialog, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "speak <lesson.yaml>",
		Short: "Generate lesson audio with text-to-speech, then process it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, err := loadLessonFile(args[0])
			if err != nil {
				return err
			}
			l, err := lf.toLesson()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.cliLogger()
			if err != nil {
				return err
			}
			p, err := ctx.processor(logger)
			if err != nil {
				return err
			}
			mode := lesson.SpeakerModeArticle
			if dialog {
				mode = lesson.SpeakerModeDialog
			}
			records, err := p.GenerateTTS(cmd.Context(), lesson.TTSRequest{
				Lesson:   l,
				Provider: provider,
				Voice:    voice,
				Voice2:   voice2,
				Model:    model,
				Mode:     mode,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, records)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Audio written to %s\n", cfg.LessonAudioPath(l.ID))
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "TTS provider (gemini or chatterbox)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice for the first speaker")
	cmd.Flags().StringVar(&voice2, "voice2", "", "Voice for the second speaker in dialog mode")
	cmd.Flags().StringVar(&model, "model", "", "TTS model")
	cmd.Flags().BoolVar(&dialog, "dialog", false, "Treat the text as a two-speaker dialog")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output sentence records as JSON")
	return cmd
}

func printRecords(out io.Writer, records []lesson.SentenceRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No sentences")
		return
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.Itoa(r.Idx),
			formatMillis(r.StartMS),
			formatMillis(r.EndMS),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			truncate(r.ForeignText, 48),
			truncate(r.TranslationText, 32),
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Start", "End", "Conf", "Sentence", "Translation"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}

func formatMillis(ms int) string {
	return fmt.Sprintf("%d.%03ds", ms/1000, ms%1000)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
