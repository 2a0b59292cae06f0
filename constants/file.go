package constants

import "strings"

// FileFormats holds the allowed format values for ingested documents.
var FileFormats = []string{"PDF", "IMAGE", "OFFICE"}

// AllowedExtensions holds the file extensions accepted at ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"doc":  {},
	"docx": {},
	"xls":  {},
	"xlsx": {},
}

// AllowedMIMETypes holds the MIME types accepted at ingestion.
var AllowedMIMETypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/tiff":      {},
	"application/msword":            {},
	"application/vnd.ms-excel":      {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FormatForExt maps an extension to its coarse format bucket.
func FormatForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "PDF"
	case "jpg", "jpeg", "png", "tif", "tiff":
		return "IMAGE"
	case "doc", "docx", "xls", "xlsx":
		return "OFFICE"
	default:
		return ""
	}
}
