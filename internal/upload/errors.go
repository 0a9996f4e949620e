package upload

import (
	"fmt"

	"callqa/internal/services"
)

// Local rejections. Each carries services.ErrValidation and is returned
// before any network call.
var (
	ErrSelectionIncomplete = fmt.Errorf("%w: select a carteira and an agent first", services.ErrValidation)
	ErrSubmissionActive    = fmt.Errorf("%w: a submission is already in progress", services.ErrValidation)
	ErrUnsupportedAudio    = fmt.Errorf("%w: not an audio file (mp3, wav, m4a or audio/*)", services.ErrValidation)
	ErrEmptyAudio          = fmt.Errorf("%w: audio file is empty", services.ErrValidation)
	ErrFileTooLarge        = fmt.Errorf("%w: audio file exceeds the size limit", services.ErrValidation)
	ErrNothingSelected     = fmt.Errorf("%w: no selected submission to upload", services.ErrValidation)
	ErrSubmissionRemoved   = fmt.Errorf("%w: submission was removed", services.ErrValidation)
)

// ProcessingFailedMessage is shown when the backend reports a failed run
// without an error message.
const ProcessingFailedMessage = "Falha no processamento do áudio"

// TimedOutMessage is shown when polling gives up.
const TimedOutMessage = "Tempo limite excedido aguardando o processamento"
