package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/http/middleware"
	"github.com/phambaophuc/convert-toolkit/internal/models"
)

const (
	fileParamKey  = "file"
	filesParamKey = "files"
	urlParamKey   = "url"
)

// === REQUEST PARSING ===

func parsePositiveInt(value, name string, defaultVal int) (int, error) {
	if value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, apperrors.Validation(fmt.Sprintf("invalid %s: must be a non-negative integer", name))
	}
	return n, nil
}

func parseFloat(value, name string, defaultVal float64) (float64, error) {
	if value == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, apperrors.Validation(fmt.Sprintf("invalid %s: must be a number", name))
	}
	return f, nil
}

func parseBool(value string, defaultVal bool) bool {
	if value == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultVal
	}
	return b
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperrors.Validation("invalid request body: " + err.Error())
	}
	return nil
}

// === FILE OPERATIONS ===

// readUpload reads the single file uploaded under key.
func readUpload(c *gin.Context, key string, maxSize int64) (models.InputFile, error) {
	header, err := c.FormFile(key)
	if err != nil {
		return models.InputFile{}, apperrors.Validation("no file provided")
	}
	return readHeader(header, maxSize)
}

// readUploads reads every file uploaded under key or key[].
func readUploads(c *gin.Context, key string, maxSize int64) ([]models.InputFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.Validation("failed to parse form data")
	}

	headers := append(form.File[key], form.File[key+"[]"]...)
	if len(headers) == 0 {
		return nil, apperrors.Validation("no files provided")
	}

	files := make([]models.InputFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readHeader(fh, maxSize)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readHeader(header *multipart.FileHeader, maxSize int64) (models.InputFile, error) {
	if maxSize > 0 && header.Size > maxSize {
		return models.InputFile{}, apperrors.Validation(
			fmt.Sprintf("%s exceeds the maximum size of %d bytes", header.Filename, maxSize))
	}

	file, err := header.Open()
	if err != nil {
		return models.InputFile{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return models.InputFile{}, apperrors.Validation("request body too large")
		}
		return models.InputFile{}, fmt.Errorf("failed to read upload: %w", err)
	}

	return models.InputFile{
		Name:        path.Base(header.Filename),
		Size:        int64(len(data)),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// nameFromURL derives a file name from the last path segment of rawURL.
func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}

// === RESPONSE HANDLING ===

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, models.APIResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, err error) {
	middleware.RespondWithError(c, err)
}

// sendAttachment writes data as a download named filename.
func sendAttachment(c *gin.Context, data []byte, contentType, filename string) {
	c.Header("Content-Disposition", contentDisposition(filename))
	c.Data(http.StatusOK, contentType, data)
}

func contentDisposition(filename string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii, url.PathEscape(filename))
}

// outputOwner scopes a transient handle to the calling client and tool, so
// a new result from the same tool releases the previous one.
func outputOwner(c *gin.Context, tool string) string {
	return middleware.ClientID(c) + ":" + tool
}
