package jobs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"readrepeat/internal/lesson"
	"readrepeat/internal/services"
	"readrepeat/internal/transcribe"
)

// Kind identifies a job type.
type Kind string

const (
	KindProcessLesson     Kind = "PROCESS_LESSON"
	KindResliceAudio      Kind = "RESLICE_AUDIO"
	KindGenerateTTSLesson Kind = "GENERATE_TTS_LESSON"
	KindTranscribeAudio   Kind = "TRANSCRIBE_AUDIO"
)

// AllKinds lists the supported job kinds.
func AllKinds() []Kind {
	return []Kind{KindProcessLesson, KindResliceAudio, KindGenerateTTSLesson, KindTranscribeAudio}
}

// ParseKind normalizes a kind name such as "process_lesson".
func ParseKind(value string) (Kind, bool) {
	kind := Kind(strings.ToUpper(strings.TrimSpace(value)))
	for _, k := range AllKinds() {
		if k == kind {
			return k, true
		}
	}
	return kind, false
}

// Job is a unit of work as delivered by the lesson API.
type Job struct {
	ID        string                  `json:"id"`
	Kind      Kind                    `json:"type"`
	Lesson    *LessonData             `json:"lesson,omitempty"`
	Sentences []lesson.SentenceTiming `json:"sentences,omitempty"`
	Payload   json.RawMessage         `json:"payload,omitempty"`
	AudioFile *AudioFile              `json:"audioFile,omitempty"`

	// QueueID is set for jobs claimed from the local queue.
	QueueID int64 `json:"-"`
}

// LessonData is the lesson row attached to a job. Required fields are
// pointers so a missing field can be told apart from an empty one.
type LessonData struct {
	ID                 *string `json:"id,omitempty"`
	ForeignTextRaw     *string `json:"foreignTextRaw,omitempty"`
	TranslationTextRaw *string `json:"translationTextRaw,omitempty"`
	AudioOriginalPath  *string `json:"audioOriginalPath,omitempty"`
	ForeignLang        string  `json:"foreignLang,omitempty"`
	TranslationLang    string  `json:"translationLang,omitempty"`
	WhisperModel       string  `json:"whisperModel,omitempty"`
}

// AudioFile is the uploaded audio row attached to a job.
type AudioFile struct {
	ID                string `json:"id,omitempty"`
	FilePath          string `json:"filePath,omitempty"`
	TranscriptionJSON string `json:"transcriptionJson,omitempty"`
}

// TTSPayload carries GENERATE_TTS_LESSON options.
type TTSPayload struct {
	Provider    string `json:"provider,omitempty"`
	VoiceName   string `json:"voiceName,omitempty"`
	TTSModel    string `json:"ttsModel,omitempty"`
	SpeakerMode string `json:"speakerMode,omitempty"`
	Voice2Name  string `json:"voice2Name,omitempty"`
}

// TranscribePayload carries TRANSCRIBE_AUDIO options.
type TranscribePayload struct {
	AudioFileID  *string `json:"audioFileId,omitempty"`
	Language     string  `json:"language,omitempty"`
	WhisperModel string  `json:"whisperModel,omitempty"`
}

// Decode parses a job from its wire form.
func Decode(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func invalid(text string) error {
	return services.NewUserError(services.ErrValidation, text)
}

// requireLesson checks the lesson exists and has every named field.
func (j *Job) requireLesson(fields ...string) error {
	if j.Lesson == nil {
		return invalid("No lesson data in job")
	}
	present := map[string]bool{
		"id":                 j.Lesson.ID != nil,
		"foreignTextRaw":     j.Lesson.ForeignTextRaw != nil,
		"translationTextRaw": j.Lesson.TranslationTextRaw != nil,
		"audioOriginalPath":  j.Lesson.AudioOriginalPath != nil,
	}
	for _, field := range fields {
		if !present[field] {
			return invalid("Missing required field: " + field)
		}
	}
	return nil
}

// ToLesson converts the attached lesson into pipeline input. A stored
// transcription that fails to parse is reported through warn and ignored.
func (j *Job) ToLesson(warn func(error)) lesson.Lesson {
	l := lesson.Lesson{}
	if j.Lesson != nil {
		l.ID = str(j.Lesson.ID)
		l.ForeignText = str(j.Lesson.ForeignTextRaw)
		l.TranslationText = str(j.Lesson.TranslationTextRaw)
		l.AudioPath = str(j.Lesson.AudioOriginalPath)
		l.ForeignLang = j.Lesson.ForeignLang
		l.TranslationLang = j.Lesson.TranslationLang
		l.WhisperModel = j.Lesson.WhisperModel
	}
	if j.AudioFile != nil && strings.TrimSpace(j.AudioFile.TranscriptionJSON) != "" {
		cached, err := transcribe.DecodeCached([]byte(j.AudioFile.TranscriptionJSON))
		if err != nil {
			if warn != nil {
				warn(err)
			}
		} else {
			l.Cached = cached
		}
	}
	return l
}

// TTSPayload decodes the GENERATE_TTS_LESSON payload; a missing payload
// yields defaults.
func (j *Job) TTSPayload() (TTSPayload, error) {
	var p TTSPayload
	if len(j.Payload) == 0 || string(j.Payload) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, invalid("Invalid payload: " + err.Error())
	}
	return p, nil
}

// TranscribePayload decodes the TRANSCRIBE_AUDIO payload.
func (j *Job) TranscribePayload() (TranscribePayload, error) {
	var p TranscribePayload
	if len(j.Payload) == 0 || string(j.Payload) == "null" || string(j.Payload) == "{}" {
		return p, invalid("No payload in job")
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, invalid("Invalid payload: " + err.Error())
	}
	if p.AudioFileID == nil {
		return p, invalid("Missing audioFileId in payload")
	}
	return p, nil
}

// Result is what a handler reports on success.
type Result struct {
	Sentences        []lesson.SentenceRecord
	UpdatedSentences []lesson.ClipUpdate
	Data             any
}

// kindNames renders kinds for error messages.
func kindNames(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
