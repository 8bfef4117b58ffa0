package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mamadbah2/knittrack/internal/domain/models"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

const photoField = "photo"

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEMultipartPOSTForm
}

// formPhoto opens the optional photo part of a multipart request.
func formPhoto(c *gin.Context) (*models.Photo, func(), error) {
	header, err := c.FormFile(photoField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &models.Photo{Filename: header.Filename, Reader: f}, func() { _ = f.Close() }, nil
}
