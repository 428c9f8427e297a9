package models

import "time"

// MediaFile is an uploaded teaching asset owned by a teacher.
type MediaFile struct {
	ID               string    `db:"id" json:"id"`
	TeacherID        string    `db:"teacher_id" json:"teacher_id"`
	Filename         string    `db:"filename" json:"filename"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	FilePath         string    `db:"file_path" json:"-"`
	FileSize         int64     `db:"file_size" json:"file_size"`
	MimeType         string    `db:"mime_type" json:"mime_type"`
	Description      string    `db:"description" json:"description"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploaded_at"`
}
