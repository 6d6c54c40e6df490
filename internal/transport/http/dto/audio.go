package dto

import "mime/multipart"

// AudioUploadInput carries one recorded audio label. DurationSeconds is the
// recorder-declared length, checked against the configured maximum.
type AudioUploadInput struct {
	File            *multipart.FileHeader `json:"-" form:"file" validate:"required"`
	DurationSeconds int                   `json:"duration_seconds" form:"duration_seconds" validate:"omitempty,min=1"`
}
