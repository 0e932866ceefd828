package processor

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
)

// ValidateUpload checks the size and sniffed content type of an upload.
// It returns the detected MIME type.
func ValidateUpload(data []byte, maxSize int64, allowedTypes []string) (string, error) {
	if len(data) == 0 {
		return "", apperrors.Validation("the uploaded file is empty")
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return "", apperrors.Validation(fmt.Sprintf("file size %d exceeds maximum allowed size %d", len(data), maxSize))
	}

	mtype := mimetype.Detect(data)
	for _, m := range unsupportedMIMEs {
		if mtype.Is(m) {
			return mtype.String(), apperrors.UnsupportedFormat(heicHint)
		}
	}
	if len(allowedTypes) == 0 {
		return mtype.String(), nil
	}
	for _, allowed := range allowedTypes {
		if mtype.Is(allowed) {
			return baseMIME(mtype.String()), nil
		}
	}
	return "", apperrors.UnsupportedFormat(fmt.Sprintf("unsupported file type %s", baseMIME(mtype.String())))
}

func baseMIME(m string) string {
	if i := strings.Index(m, ";"); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}
