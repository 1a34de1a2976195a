package models

import "time"

// UploadRecord describes one file persisted by the upload endpoint.
type UploadRecord struct {
	SavedName    string    `json:"saved_name"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	Provider     string    `json:"provider"`
	ObjectKey    string    `json:"object_key"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
