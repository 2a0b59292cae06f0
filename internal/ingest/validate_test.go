package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	const maxSize = 10 << 20

	tests := []struct {
		name    string
		meta    FileMetadata
		wantErr string
	}{
		{
			name: "valid pdf",
			meta: FileMetadata{Filename: "extracto_enero.pdf", SizeBytes: 1024},
		},
		{
			name: "valid image with explicit content type",
			meta: FileMetadata{Filename: "cedula.jpg", SizeBytes: 2048, ContentType: "image/jpeg"},
		},
		{
			name: "content type with charset parameter",
			meta: FileMetadata{Filename: "contrato.pdf", SizeBytes: 512, ContentType: "application/pdf; charset=binary"},
		},
		{
			name:    "missing filename",
			meta:    FileMetadata{SizeBytes: 100},
			wantErr: "filename",
		},
		{
			name:    "unsupported extension",
			meta:    FileMetadata{Filename: "notes.txt", SizeBytes: 100},
			wantErr: "unsupported extension",
		},
		{
			name:    "mismatched content type",
			meta:    FileMetadata{Filename: "scan.pdf", SizeBytes: 100, ContentType: "text/html"},
			wantErr: "unsupported content type",
		},
		{
			name:    "empty file",
			meta:    FileMetadata{Filename: "vacio.pdf", SizeBytes: 0},
			wantErr: "empty",
		},
		{
			name:    "oversized file",
			meta:    FileMetadata{Filename: "grande.pdf", SizeBytes: maxSize + 1},
			wantErr: "exceeds limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.meta, maxSize)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr),
				"expected %q in %q", tt.wantErr, err.Error())
		})
	}
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("xlsx"))
	assert.False(t, AllowedExt(".exe"))
	assert.False(t, AllowedExt(""))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/data/.staging"))
	assert.True(t, IsHidden(".DS_Store"))
	assert.False(t, IsHidden("/data/inbox/extracto.pdf"))
}
