package service

import (
	"time"

	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/entity"
)

const bytesPerMB = 1024 * 1024

type Limits struct {
	MaxImageBytes      int64
	MaxAudioBytes      int64
	PreviewURLTTL      time.Duration
	DownloadURLTTL     time.Duration
	SignedUploadTTL    time.Duration
	CommitRequireToken bool
	CommitVerifyObject bool
	TokenSecret        string
	// SigningConcurrency bounds parallel signatures when decorating a listing.
	SigningConcurrency int
}

func LimitsFromConfig(cfg *config.EnvConfig) Limits {
	return Limits{
		MaxImageBytes:      cfg.Media.MaxImageMB * bytesPerMB,
		MaxAudioBytes:      cfg.Media.MaxAudioMB * bytesPerMB,
		PreviewURLTTL:      time.Duration(cfg.Media.PreviewURLTTL) * time.Second,
		DownloadURLTTL:     time.Duration(cfg.Media.DownloadURLTTL) * time.Second,
		SignedUploadTTL:    time.Duration(cfg.Media.SignedUploadTTL) * time.Second,
		CommitRequireToken: cfg.Media.CommitRequireToken,
		CommitVerifyObject: cfg.Media.CommitVerifyObject,
		TokenSecret:        cfg.PrivateKey,
		SigningConcurrency: 8,
	}
}

func (l Limits) MaxBytes(kind entity.MediaKind) int64 {
	switch kind {
	case entity.MediaKindImage:
		return l.MaxImageBytes
	case entity.MediaKindAudio:
		return l.MaxAudioBytes
	default:
		return 0
	}
}
