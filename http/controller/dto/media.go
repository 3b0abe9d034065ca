package dto

import (
	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/service"
)

type SignedUploadRequest struct {
	Mime string `json:"mime"`
}

type SignedUploadResponse struct {
	Bucket    entity.StorageBucket `json:"bucket"`
	Path      string               `json:"path"`
	UploadURL string               `json:"uploadUrl"`
	Token     string               `json:"token"`
	ExpiresAt int64                `json:"expiresAt"`
}

type CommitRequest struct {
	Bucket      string   `json:"bucket"`
	Path        string   `json:"path"`
	Mime        string   `json:"mime"`
	SizeBytes   int64    `json:"size_bytes"`
	Kind        string   `json:"kind"`
	Width       *int     `json:"width,omitempty"`
	Height      *int     `json:"height,omitempty"`
	DurationSec *float64 `json:"duration_sec,omitempty"`
	Token       string   `json:"token,omitempty"`
}

type MediaResponse struct {
	Media *entity.Media `json:"media"`
}

type UploadResponse struct {
	Media      *entity.Media `json:"media"`
	PreviewURL string        `json:"previewUrl"`
}

type URLResponse struct {
	URL string `json:"url"`
}

type ListResponse struct {
	Items []service.MediaWithURL `json:"items"`
	Total int64                  `json:"total"`
}

type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
