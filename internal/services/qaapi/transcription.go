package qaapi

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"callqa/internal/services"
	"callqa/internal/transcript"
)

// Transcribe uploads an audio file to the transcription endpoint and returns
// the normalized diarized transcript.
func (c *Client) Transcribe(ctx context.Context, path string) (transcript.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return transcript.Result{}, services.Wrap(services.ErrValidation, "qaapi", "transcribe", "open file", err)
	}
	defer file.Close()

	name := filepath.Base(path)
	body, contentType := streamMultipart("arquivo", name, mime.TypeByExtension(filepath.Ext(name)), file, nil)
	req, err := c.newRequest(ctx, http.MethodPost, "/api/transcricao/upload", body, true)
	if err != nil {
		_ = body.Close()
		return transcript.Result{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var result transcript.Result
	if err := c.send(req, "transcribe", &result); err != nil {
		return transcript.Result{}, err
	}
	if result.FileName == "" {
		result.FileName = name
	}
	result.Normalize()
	return result, nil
}
