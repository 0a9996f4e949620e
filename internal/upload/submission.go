package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"callqa/internal/services"
)

// Selection routes a submission: the carteira whose criteria apply and the
// agent being evaluated.
type Selection struct {
	CarteiraID string `json:"carteira_id" validate:"required"`
	AgentID    string `json:"agent_id" validate:"required"`
}

func (s Selection) normalized() Selection {
	return Selection{
		CarteiraID: strings.TrimSpace(s.CarteiraID),
		AgentID:    strings.TrimSpace(s.AgentID),
	}
}

// AudioFile is a recording on local disk.
type AudioFile struct {
	Path        string `json:"path" validate:"required"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

var audioExtensions = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
}

// OpenAudioFile stats path and sniffs its content type.
func OpenAudioFile(path string) (AudioFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return AudioFile{}, services.Wrap(services.ErrValidation, "upload", "open audio", path, err)
	}
	if info.IsDir() {
		return AudioFile{}, services.Wrap(services.ErrValidation, "upload", "open audio", path+" is a directory", nil)
	}
	file := AudioFile{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
	}
	file.ContentType = detectContentType(path)
	return file, nil
}

func detectContentType(path string) string {
	byExt := audioExtensions[strings.ToLower(filepath.Ext(path))]
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return byExt
	}
	if strings.HasPrefix(detected.String(), "audio/") {
		return detected.String()
	}
	if byExt != "" {
		return byExt
	}
	return detected.String()
}

// IsAudio reports whether the file passes the audio allowlist: a known
// extension or any audio/* content type.
func (f AudioFile) IsAudio() bool {
	if _, ok := audioExtensions[strings.ToLower(filepath.Ext(f.Name))]; ok {
		return true
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(f.ContentType)), "audio/")
}

// RemoteJobReference is the backend handle of an uploaded file.
type RemoteJobReference struct {
	FileID          string `json:"file_id,omitempty"`
	CallID          string `json:"call_id,omitempty"`
	AvaliacaoID     string `json:"avaliacao_id,omitempty"`
	LastKnownStatus string `json:"last_known_status,omitempty"`
	Duplicate       bool   `json:"duplicate"`
}

// Submission is one audio submission and its lifecycle state.
type Submission struct {
	LocalID       string              `json:"local_id"`
	FileName      string              `json:"file_name"`
	FilePath      string              `json:"file_path"`
	FileSizeBytes int64               `json:"file_size_bytes"`
	ContentType   string              `json:"content_type,omitempty"`
	CarteiraID    string              `json:"carteira_id"`
	AgentID       string              `json:"agent_id"`
	Progress      int                 `json:"progress"`
	Status        Status              `json:"status"`
	Message       string              `json:"message,omitempty"`
	ErrorKind     string              `json:"error_kind,omitempty"`
	Reference     *RemoteJobReference `json:"reference,omitempty"`
	PollAttempts  int                 `json:"poll_attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Snapshot is an immutable copy of the coordinator state. An idle
// coordinator yields a zero Submission with StatusIdle.
type Snapshot struct {
	Submission
}

// Idle reports whether no submission is held.
func (s Snapshot) Idle() bool { return s.Status == StatusIdle }

// AvaliacaoID returns the evaluation identifier when one is known.
func (s Snapshot) AvaliacaoID() string {
	if s.Reference == nil {
		return ""
	}
	return s.Reference.AvaliacaoID
}

// Err maps failed terminal states to a classified error.
func (s Snapshot) Err() error {
	return statusError(s.Status, s.Message)
}

func (s *Submission) clone() Submission {
	out := *s
	if s.Reference != nil {
		ref := *s.Reference
		out.Reference = &ref
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateSelection(sel Selection) error {
	if err := validate.Struct(sel); err != nil {
		return fmt.Errorf("%w: %s", ErrSelectionIncomplete, missingFields(err))
	}
	return nil
}

func missingFields(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return "missing " + strings.Join(names, ", ")
}
