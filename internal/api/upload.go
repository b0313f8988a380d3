package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/snarg/scribe/internal/spool"
)

// AllowedExtensions is the audio allow-list, lowercase without the dot.
var AllowedExtensions = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"m4a":  true,
	"flac": true,
	"ogg":  true,
	"webm": true,
}

// audioField is the multipart field carrying the upload.
const audioField = "audio"

// Validation error codes.
const (
	CodeMissing         = "missing"
	CodeEmptyName       = "empty_name"
	CodeUnsupportedType = "unsupported_type"
)

// ValidationError is a client-caused upload rejection.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AllowedFile reports whether name carries an allow-listed extension.
// The comparison is case-insensitive.
func AllowedFile(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	return AllowedExtensions[strings.ToLower(ext)]
}

// maxFieldBytes caps each plain form field.
const maxFieldBytes = 64 << 10

var (
	errFieldTooLarge = errors.New("form field too large")
	errSpool         = errors.New("spool upload")
)

// Upload is the audio part of a /transcribe request, spooled to disk, plus the
// plain form fields read alongside it.
type Upload struct {
	Filename string
	Path     string
	Size     int64
	Fields   url.Values
}

// Remove deletes the spooled file. Safe to call more than once.
func (u *Upload) Remove() {
	if u == nil || u.Path == "" {
		return
	}
	os.Remove(u.Path)
	u.Path = ""
}

// ValidateUpload checks the headers of the multipart part offered as the audio
// file and returns its filename. A nil part, or one sent as a plain field
// without a filename parameter, is missing; a filename parameter that is
// present but empty is rejected separately. It has no side effects.
func ValidateUpload(p *multipart.Part) (string, error) {
	if p == nil {
		return "", &ValidationError{Code: CodeMissing, Message: "No audio file provided"}
	}
	raw, ok := filenameParam(p)
	if !ok {
		return "", &ValidationError{Code: CodeMissing, Message: "No audio file provided"}
	}
	if raw == "" {
		return "", &ValidationError{Code: CodeEmptyName, Message: "Empty filename"}
	}
	name := p.FileName()
	if !AllowedFile(name) {
		return "", &ValidationError{Code: CodeUnsupportedType, Message: "Unsupported file type"}
	}
	return name, nil
}

// filenameParam reports the raw filename parameter of the part's
// Content-Disposition and whether it was sent at all.
func filenameParam(p *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}

// ReadUpload streams a multipart body, spooling the first audio file part into
// dir and collecting plain fields. Validation errors come back as
// *ValidationError; on any error nothing is left on disk.
func ReadUpload(mr *multipart.Reader, dir string) (*Upload, error) {
	up := &Upload{Fields: url.Values{}}
	var seen bool
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			up.Remove()
			return nil, fmt.Errorf("read multipart: %w", err)
		}

		name := p.FormName()
		_, isFile := filenameParam(p)
		switch {
		case name == "":
		case isFile && name == audioField && !seen:
			seen = true
			filename, err := ValidateUpload(p)
			if err != nil {
				return nil, err
			}
			path, size, err := spoolPart(p, filename, dir)
			if err != nil {
				return nil, err
			}
			up.Filename, up.Path, up.Size = filename, path, size
		case isFile:
			// Other file parts are drained by NextPart.
		default:
			v, err := io.ReadAll(io.LimitReader(p, maxFieldBytes+1))
			if err != nil {
				up.Remove()
				return nil, fmt.Errorf("read field %q: %w", name, err)
			}
			if len(v) > maxFieldBytes {
				up.Remove()
				return nil, errFieldTooLarge
			}
			up.Fields.Add(name, string(v))
		}
		p.Close()
	}
	if !seen {
		return nil, &ValidationError{Code: CodeMissing, Message: "No audio file provided"}
	}
	return up, nil
}

// readRecorder remembers the first read error so body failures can be told
// apart from disk failures.
type readRecorder struct {
	r   io.Reader
	err error
}

func (rr *readRecorder) Read(b []byte) (int, error) {
	n, err := rr.r.Read(b)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}
	return n, err
}

// spoolPart copies the part into a private file under dir and returns its path
// and size. The file is created exclusively with owner-only permissions; on
// error nothing is left behind. Disk failures wrap errSpool.
func spoolPart(src io.Reader, filename, dir string) (string, int64, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(dir, spool.Prefix+uuid.NewString()+ext)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("%w: create file: %w", errSpool, err)
	}
	rr := &readRecorder{r: src}
	n, err := io.Copy(dst, rr)
	if err != nil {
		dst.Close()
		os.Remove(path)
		if rr.err != nil {
			return "", 0, fmt.Errorf("read upload: %w", rr.err)
		}
		return "", 0, fmt.Errorf("%w: write file: %w", errSpool, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("%w: close file: %w", errSpool, err)
	}
	return path, n, nil
}

// isTooLarge reports whether err came from an http.MaxBytesReader limit.
// The multipart reader does not always wrap the underlying error, so the
// message is checked as well.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
