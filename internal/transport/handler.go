// Package transport is the thin HTTP boundary over the detection pipeline.
// All analysis logic lives behind it; edits the client makes to boxes are
// never sent back here.
package transport

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	spotter "go-propaganda-spotter"
)

// ErrorResponse is the JSON body for rejected requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the HTTP routes around a Spotter.
func NewHandler(s *spotter.Spotter, maxUploadBytes int64) http.Handler {
	r := gin.Default()
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(s.MetricsHandler()))
	r.POST("/analyze", analyzeImage(s, maxUploadBytes))

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func analyzeImage(s *spotter.Spotter, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			logrus.WithError(err).Error("Missing file in analyze request")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file field is required"})
			return
		}
		if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file must be an image"})
			return
		}
		if fileHeader.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not open upload", Message: err.Error()})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read upload", Message: err.Error()})
			return
		}

		logrus.WithFields(logrus.Fields{
			"filename": fileHeader.Filename,
			"size":     len(data),
			"ip":       c.ClientIP(),
		}).Info("Processing image analysis request")

		report := s.AnalyzeBytes(c.Request.Context(), data)

		// Fatal pipeline failures still return 200 with success=false; the
		// report is the interface contract, not the status code.
		c.JSON(http.StatusOK, report)
	}
}
