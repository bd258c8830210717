package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-api/internal/dto"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

const imageField = "image"

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formImage opens the optional image part. The returned closer is never nil.
func formImage(c *gin.Context) (*dto.UploadFile, io.Closer, error) {
	header, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nopCloser{}, nil
		}
		return nil, nopCloser{}, invalidPayload(err, "invalid image upload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, nopCloser{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read image")
	}
	return &dto.UploadFile{Filename: header.Filename, Size: header.Size, Reader: file}, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
