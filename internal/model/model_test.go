package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFile(t *testing.T) {
	tests := []struct {
		name     string
		wantType FileType
		wantExt  string
	}{
		{"photo.PNG", FileTypeImage, "png"},
		{"report.final.pdf", FileTypeDocument, "pdf"},
		{"clip.mov", FileTypeVideo, "mov"},
		{"song.flac", FileTypeAudio, "flac"},
		{"archive.zip", FileTypeOther, "zip"},
		{"Makefile", FileTypeOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotExt := ClassifyFile(tt.name)
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantExt, gotExt)
		})
	}
}

func TestFileVisibleTo(t *testing.T) {
	f := &File{OwnerID: "u1", SharedUserEmails: []string{"bob@x.com"}}

	assert.True(t, f.VisibleTo(&User{ID: "u1", Email: "a@x.com"}))
	assert.True(t, f.VisibleTo(&User{ID: "u2", Email: "Bob@X.com"}))
	assert.False(t, f.VisibleTo(&User{ID: "u3", Email: "eve@x.com"}))
	assert.False(t, f.VisibleTo(nil))
}

func TestNewQuotaSnapshot(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		q := NewQuotaSnapshot(nil, 2<<30)

		assert.Equal(t, int64(0), q.Used)
		assert.Equal(t, int64(2<<30), q.All)
		for _, u := range []TypeUsage{q.Image, q.Document, q.Video, q.Audio, q.Other} {
			assert.Zero(t, u.Size)
			assert.Nil(t, u.LatestDate)
		}
	})

	t.Run("folds by type", func(t *testing.T) {
		t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		t2 := t1.Add(time.Hour)
		files := []File{
			{Type: FileTypeImage, Size: 10, UpdatedAt: t1},
			{Type: FileTypeImage, Size: 5, UpdatedAt: t2},
			{Type: FileTypeDocument, Size: 7, UpdatedAt: t1},
			{Type: FileTypeVideo, Size: 100, UpdatedAt: t2},
			{Type: FileTypeAudio, Size: 3, UpdatedAt: t1},
			{Type: FileTypeOther, Size: 1, UpdatedAt: t1},
		}

		q := NewQuotaSnapshot(files, 1000)

		assert.Equal(t, int64(15), q.Image.Size)
		require.NotNil(t, q.Image.LatestDate)
		assert.Equal(t, t2, *q.Image.LatestDate)
		assert.Equal(t, int64(126), q.Used)
		assert.Equal(t, q.Used, q.Image.Size+q.Document.Size+q.Video.Size+q.Audio.Size+q.Other.Size)
	})
}
