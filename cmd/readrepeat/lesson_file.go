package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"readrepeat/internal/lesson"
	"readrepeat/internal/transcribe"
)

// lessonFile is the on-disk lesson description used by the one-off
// commands. Relative paths resolve against the file's directory.
type lessonFile struct {
	ID              string          `yaml:"id"`
	ForeignLang     string          `yaml:"foreign_lang"`
	TranslationLang string          `yaml:"translation_lang"`
	Audio           string          `yaml:"audio"`
	WhisperModel    string          `yaml:"whisper_model"`
	ForeignText     string          `yaml:"foreign_text"`
	TranslationText string          `yaml:"translation_text"`
	Transcript      string          `yaml:"transcript"`
	Sentences       []sentenceEntry `yaml:"sentences"`

	dir string
}

type sentenceEntry struct {
	ID         string   `yaml:"id"`
	StartMS    int      `yaml:"start_ms"`
	EndMS      int      `yaml:"end_ms"`
	Confidence *float64 `yaml:"confidence"`
}

func loadLessonFile(path string) (*lessonFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lesson file: %w", err)
	}
	var lf lessonFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse lesson file %s: %w", path, err)
	}
	lf.dir = filepath.Dir(path)
	if strings.TrimSpace(lf.ID) == "" {
		base := filepath.Base(path)
		lf.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &lf, nil
}

func (lf *lessonFile) resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(lf.dir, p)
}

// toLesson builds pipeline input, loading the cached transcript if named.
func (lf *lessonFile) toLesson() (lesson.Lesson, error) {
	l := lesson.Lesson{
		ID:              lf.ID,
		ForeignText:     lf.ForeignText,
		TranslationText: lf.TranslationText,
		AudioPath:       lf.resolve(lf.Audio),
		ForeignLang:     lf.ForeignLang,
		TranslationLang: lf.TranslationLang,
		WhisperModel:    lf.WhisperModel,
	}
	if lf.Transcript != "" {
		cached, err := readTranscript(lf.resolve(lf.Transcript))
		if err != nil {
			return l, err
		}
		l.Cached = cached
	}
	return l, nil
}

func (lf *lessonFile) timings() []lesson.SentenceTiming {
	out := make([]lesson.SentenceTiming, len(lf.Sentences))
	for i, s := range lf.Sentences {
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", lf.ID, i)
		}
		out[i] = lesson.SentenceTiming{ID: id, Idx: i, StartMS: s.StartMS, EndMS: s.EndMS, Confidence: s.Confidence}
	}
	return out
}

func readTranscript(path string) (*transcribe.Cached, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	cached, err := transcribe.DecodeCached(data)
	if err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return cached, nil
}
