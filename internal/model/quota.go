package model

import "time"

// TypeUsage is the storage used by one file type.
// LatestDate is nil when there are no files of that type.
type TypeUsage struct {
	Size       int64      `json:"size"`
	LatestDate *time.Time `json:"latestDate"`
}

// QuotaSnapshot summarises storage use for a single owner. It is derived on
// demand from file documents and never persisted.
type QuotaSnapshot struct {
	Image    TypeUsage `json:"image"`
	Document TypeUsage `json:"document"`
	Video    TypeUsage `json:"video"`
	Audio    TypeUsage `json:"audio"`
	Other    TypeUsage `json:"other"`
	Used     int64     `json:"used"`
	All      int64     `json:"all"`
}

// NewQuotaSnapshot folds files into per-type totals against the given capacity.
func NewQuotaSnapshot(files []File, capacity int64) *QuotaSnapshot {
	q := &QuotaSnapshot{All: capacity}
	for i := range files {
		f := &files[i]
		u := q.usage(f.Type)
		u.Size += f.Size
		q.Used += f.Size
		if u.LatestDate == nil || f.UpdatedAt.After(*u.LatestDate) {
			ts := f.UpdatedAt
			u.LatestDate = &ts
		}
	}
	return q
}

func (q *QuotaSnapshot) usage(t FileType) *TypeUsage {
	switch t {
	case FileTypeImage:
		return &q.Image
	case FileTypeDocument:
		return &q.Document
	case FileTypeVideo:
		return &q.Video
	case FileTypeAudio:
		return &q.Audio
	default:
		return &q.Other
	}
}
