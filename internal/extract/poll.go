package extract

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"
)

const maxPollInterval = 5 * time.Second

// PollInterval returns the wait before poll attempt n (0-indexed): base
// doubled per attempt, capped, plus up to 50% jitter.
func PollInterval(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base
	for range attempt {
		d *= 2
		if d >= maxPollInterval {
			d = maxPollInterval
			break
		}
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

// documentTypes maps file extensions to the extraction service's type names.
var documentTypes = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".pptx": "pptx",
	".txt":  "text",
	".html": "html",
	".htm":  "html",
	".md":   "text",
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".bmp":  "bmp",
	".tiff": "tiff",
}

// DocumentType returns the extraction document type for filename.
func DocumentType(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := documentTypes[ext]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unsupported file extension: %q", ext)
}

// IsSupportedExtension checks if a file extension can be submitted.
func IsSupportedExtension(filename string) bool {
	_, err := DocumentType(filename)
	return err == nil
}
