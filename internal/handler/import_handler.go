package handler

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/importer"
	"github.com/navojoa/electoral-map/pkg/response"
)

const maxImportBytes = 20 << 20

// ImportHandler accepts CSV uploads
type ImportHandler struct {
	importer *importer.Importer
	logger   *zap.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(im *importer.Importer, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{importer: im, logger: logger}
}

// ImportPersons handles POST /api/v1/persons/import
// The CSV is read from the multipart field "file" or from the raw body.
// ?encoding=latin1 accepts ISO-8859-1 exports.
func (h *ImportHandler) ImportPersons(c *gin.Context) {
	sep := ','
	if s := c.Query("sep"); s != "" {
		r, size := utf8.DecodeRuneInString(s)
		if size != len(s) {
			response.BadRequest(c, "sep must be a single character")
			return
		}
		sep = r
	}

	var body io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "Unreadable upload")
			return
		}
		defer f.Close()
		body = f
	} else {
		body = c.Request.Body
	}

	body = io.LimitReader(body, maxImportBytes)
	switch c.DefaultQuery("encoding", "utf-8") {
	case "utf-8":
	case "latin1":
		body = importer.Latin1(body)
	default:
		response.BadRequest(c, "encoding must be utf-8 or latin1")
		return
	}

	res, err := h.importer.Import(c.Request.Context(), body, sep)
	if err != nil {
		if errors.Is(err, importer.ErrMalformedCSV) {
			response.BadRequest(c, err.Error())
			return
		}
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, res)
}
