package model

import (
	"path"
	"strings"
	"time"
)

// FileType classifies a file by its extension.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeOther    FileType = "other"
)

// FileTypes lists every file type in reporting order.
var FileTypes = []FileType{FileTypeImage, FileTypeDocument, FileTypeVideo, FileTypeAudio, FileTypeOther}

// Valid reports whether t is one of the known file types.
func (t FileType) Valid() bool {
	switch t {
	case FileTypeImage, FileTypeDocument, FileTypeVideo, FileTypeAudio, FileTypeOther:
		return true
	}
	return false
}

var extensionTypes = map[string]FileType{}

func init() {
	for _, ext := range []string{"pdf", "doc", "docx", "txt", "xls", "xlsx", "csv", "rtf", "ods", "ppt", "odp", "md", "html", "htm", "epub", "pages", "fig", "psd", "ai", "indd", "xd", "sketch", "afdesign", "afphoto"} {
		extensionTypes[ext] = FileTypeDocument
	}
	for _, ext := range []string{"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp"} {
		extensionTypes[ext] = FileTypeImage
	}
	for _, ext := range []string{"mp4", "avi", "mov", "mkv", "webm"} {
		extensionTypes[ext] = FileTypeVideo
	}
	for _, ext := range []string{"mp3", "wav", "ogg", "flac"} {
		extensionTypes[ext] = FileTypeAudio
	}
}

// ClassifyFile derives the type and lower-cased extension (without dot) from a file name.
// Names without an extension are classified as FileTypeOther with an empty extension.
func ClassifyFile(name string) (FileType, string) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return FileTypeOther, ""
	}
	if t, ok := extensionTypes[ext]; ok {
		return t, ext
	}
	return FileTypeOther, ext
}

// File is the metadata document describing an uploaded object.
type File struct {
	ID               string    `json:"id"`
	Type             FileType  `json:"type"`
	Name             string    `json:"name"`
	URL              string    `json:"url"`
	Extension        string    `json:"extension"`
	Size             int64     `json:"size"`
	OwnerID          string    `json:"ownerId"`
	AccountID        string    `json:"accountId"`
	SharedUserEmails []string  `json:"sharedUserEmails"`
	StorageObjectID  string    `json:"storageObjectId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SharedWith reports whether email is in the file's shared user list.
func (f *File) SharedWith(email string) bool {
	for _, e := range f.SharedUserEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// VisibleTo reports whether the user owns the file or has it shared with them.
func (f *File) VisibleTo(u *User) bool {
	return u != nil && (f.OwnerID == u.ID || f.SharedWith(u.Email))
}
