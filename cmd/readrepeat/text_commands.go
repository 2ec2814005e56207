package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"readrepeat/internal/align"
	"readrepeat/internal/language"
	"readrepeat/internal/segment"
	"readrepeat/internal/transcribe"
)

type sentencePair struct {
	Index       int    `json:"idx"`
	Foreign     string `json:"foreign"`
	Translation string `json:"translation"`
}

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var foreignLang, translationLang string
	var minWords int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "segment <foreign.txt> [translation.txt]",
		Short: "Split parallel texts into matching sentence pairs",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			foreign, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read foreign text: %w", err)
			}
			var translation []byte
			if len(args) == 2 {
				if translation, err = os.ReadFile(args[1]); err != nil {
					return fmt.Errorf("read translation: %w", err)
				}
			}
			if foreignLang == "" {
				foreignLang = cfg.Segmentation.ForeignLanguage
			}
			if translationLang == "" {
				translationLang = cfg.Segmentation.TranslationLang
			}
			if minWords <= 0 {
				minWords = cfg.Segmentation.MinWords
			}

			left, right := segment.AlignParallel(string(foreign), string(translation), foreignLang, translationLang,
				segment.WithMinWords(minWords))
			pairs := make([]sentencePair, len(left))
			for i := range left {
				pairs[i] = sentencePair{Index: i, Foreign: left[i], Translation: right[i]}
			}
			if jsonOutput {
				return writeJSON(cmd, pairs)
			}
			if len(pairs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sentences")
				return nil
			}
			rows := make([][]string, len(pairs))
			for i, p := range pairs {
				rows[i] = []string{strconv.Itoa(p.Index), truncate(p.Foreign, 56), truncate(p.Translation, 40)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", language.DisplayName(foreignLang), language.DisplayName(translationLang)},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&foreignLang, "foreign-lang", "", "Language of the first text (defaults to segmentation.foreign_language)")
	cmd.Flags().StringVar(&translationLang, "translation-lang", "", "Language of the second text (defaults to segmentation.translation_language)")
	cmd.Flags().IntVar(&minWords, "min-words", 0, "Merge sentences shorter than this while balancing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output sentence pairs as JSON")
	return cmd
}

type alignedSentence struct {
	Index      int     `json:"idx"`
	Text       string  `json:"text"`
	StartMS    int     `json:"startMs"`
	EndMS      int     `json:"endMs"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var lang string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "align <text.txt> <transcript.json>",
		Short: "Map sentences onto a word-timed transcript",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			var transcript transcribe.Result
			if err := json.Unmarshal(raw, &transcript); err != nil {
				return fmt.Errorf("parse transcript: %w", err)
			}
			if lang == "" {
				lang = cfg.Segmentation.ForeignLanguage
			}

			sentences := segment.Split(string(text), lang)
			statuses := make([]align.Status, len(sentences))
			aligner := align.New(align.WithObserver(func(o align.Outcome) {
				statuses[o.Index] = o.Status
			}))
			timings, err := aligner.AlignChecked(sentences, transcript.Words)
			if err != nil {
				return err
			}

			out := make([]alignedSentence, len(sentences))
			for i, s := range sentences {
				out[i] = alignedSentence{
					Index:      i,
					Text:       s,
					StartMS:    timings[i].StartMS,
					EndMS:      timings[i].EndMS,
					Confidence: timings[i].Confidence,
					Status:     string(statuses[i]),
				}
			}
			if jsonOutput {
				return writeJSON(cmd, out)
			}
			if len(out) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sentences")
				return nil
			}
			rows := make([][]string, len(out))
			for i, s := range out {
				rows[i] = []string{
					strconv.Itoa(s.Index),
					formatMillis(s.StartMS),
					formatMillis(s.EndMS),
					strconv.FormatFloat(s.Confidence, 'f', 2, 64),
					s.Status,
					truncate(s.Text, 56),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Start", "End", "Conf", "Status", "Sentence"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Language of the text (defaults to segmentation.foreign_language)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output timings as JSON")
	return cmd
}
