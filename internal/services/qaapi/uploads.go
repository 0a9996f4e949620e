package qaapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"callqa/internal/services"
)

// StatusDuplicate is the upload status reported for audio the backend has
// already evaluated.
const StatusDuplicate = "duplicate"

// StatusFailed is the polling status reported for a failed pipeline run.
const StatusFailed = "failed"

// ProgressFunc receives the number of file bytes streamed so far.
type ProgressFunc func(sent, total int64)

// UploadRequest describes one audio submission.
type UploadRequest struct {
	Path        string
	FileName    string
	ContentType string
	AgentID     string
	CarteiraID  string
	Progress    ProgressFunc
}

// UploadResponse is the body returned by POST /api/uploads/audio.
type UploadResponse struct {
	Status      string     `json:"status"`
	FileID      FlexibleID `json:"file_id"`
	CallID      FlexibleID `json:"call_id"`
	AvaliacaoID FlexibleID `json:"avaliacao_id"`
	Message     string     `json:"message"`
}

// Duplicate reports whether the backend short-circuited the upload.
func (r UploadResponse) Duplicate() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), StatusDuplicate)
}

// StatusResponse is the body returned by GET /api/uploads/{file_id}.
type StatusResponse struct {
	Status      string     `json:"status"`
	CallID      FlexibleID `json:"call_id"`
	AvaliacaoID FlexibleID `json:"avaliacao_id"`
	ErrorMsg    string     `json:"error_msg"`
}

// Failed reports whether the backend marked the pipeline run as failed.
func (r StatusResponse) Failed() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), StatusFailed)
}

// UploadAudio posts the audio file with its routing metadata. The body is
// streamed so large recordings are never buffered in memory.
func (c *Client) UploadAudio(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	file, err := os.Open(req.Path)
	if err != nil {
		return UploadResponse{}, services.Wrap(services.ErrValidation, "qaapi", "upload audio", "open file", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return UploadResponse{}, services.Wrap(services.ErrValidation, "qaapi", "upload audio", "stat file", err)
	}

	name := strings.TrimSpace(req.FileName)
	if name == "" {
		name = filepath.Base(req.Path)
	}
	fields := [][2]string{
		{"agent_id", strings.TrimSpace(req.AgentID)},
		{"carteira_id", strings.TrimSpace(req.CarteiraID)},
	}
	source := &countingReader{r: file, total: info.Size(), progress: req.Progress}
	body, contentType := streamMultipart("file", name, req.ContentType, source, fields)

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/uploads/audio", body, true)
	if err != nil {
		_ = body.Close()
		return UploadResponse{}, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	var resp UploadResponse
	if err := c.send(httpReq, "upload audio", &resp); err != nil {
		return UploadResponse{}, err
	}
	if !resp.Duplicate() && resp.FileID.Empty() {
		return resp, services.Wrap(services.ErrTransport, "qaapi", "upload audio", "response missing file_id", nil)
	}
	return resp, nil
}

// UploadStatus fetches the processing status of a previously uploaded file.
func (c *Client) UploadStatus(ctx context.Context, fileID string) (StatusResponse, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return StatusResponse{}, services.Wrap(services.ErrValidation, "qaapi", "upload status", "file id required", nil)
	}
	var resp StatusResponse
	if err := c.getJSON(ctx, "/api/uploads/"+url.PathEscape(fileID), "upload status", true, &resp); err != nil {
		return StatusResponse{}, err
	}
	return resp, nil
}

// streamMultipart returns a reader producing a multipart body with the given
// text fields followed by one file part.
func streamMultipart(fileField, fileName, contentType string, content io.Reader, fields [][2]string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := writeMultipart(writer, fileField, fileName, contentType, content, fields)
		if err == nil {
			err = writer.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, writer.FormDataContentType()
}

func writeMultipart(writer *multipart.Writer, fileField, fileName, contentType string, content io.Reader, fields [][2]string) error {
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("write field %s: %w", field[0], err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, fileName))
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	return nil
}

type countingReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress ProgressFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		if c.progress != nil {
			c.progress(c.sent, c.total)
		}
	}
	return n, err
}
