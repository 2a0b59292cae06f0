package ingest

import (
	"fmt"
	"mime"
	"path/filepath"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/common"
)

// FileMetadata is what intake validation sees before any bytes are parsed.
type FileMetadata struct {
	Filename    string
	SizeBytes   int64
	ContentType string
}

// ValidateFile checks a candidate document against the intake rules: a
// known extension, an allowed MIME type and the configured size ceiling.
func ValidateFile(meta FileMetadata, maxFileSize int64) error {
	v := common.NewValidator()

	v.Field("filename", meta.Filename, common.Required)

	ext := constants.NormalizeExt(filepath.Ext(meta.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		v.AddError("filename", fmt.Sprintf("unsupported extension %q", ext))
	}

	contentType := meta.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension("." + ext)
	}
	if contentType != "" {
		if base, _, err := mime.ParseMediaType(contentType); err == nil {
			contentType = base
		}
		if _, ok := constants.AllowedMIMETypes[contentType]; !ok {
			v.AddError("content_type", fmt.Sprintf("unsupported content type %q", contentType))
		}
	}

	if meta.SizeBytes <= 0 {
		v.AddError("size_bytes", "file is empty")
	} else if maxFileSize > 0 && meta.SizeBytes > maxFileSize {
		v.AddError("size_bytes", fmt.Sprintf("file size %d exceeds limit %d", meta.SizeBytes, maxFileSize))
	}

	return v.ErrorOrNil()
}
