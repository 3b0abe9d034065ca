package utils

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/entity"
)

var (
	ErrUnsupportedKind      = errors.New("unsupported media kind")
	ErrUnsupportedMime      = errors.New("unsupported mime type")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrNoExtension          = errors.New("file has no extension")
)

var mimeToExt = map[string]string{
	"image/jpeg":  "jpg",
	"image/jpg":   "jpg",
	"image/png":   "png",
	"image/webp":  "webp",
	"audio/m4a":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/aac":   "aac",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
}

// extToMime is kept separate from mimeToExt, the two tables are not inverses.
var extToMime = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/m4a",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
}

func normalizeMime(mime string) string {
	return strings.ToLower(strings.TrimSpace(mime))
}

// MimeToKindBucket classifies a declared content type by its top-level type.
func MimeToKindBucket(mime string) (entity.MediaKind, entity.StorageBucket, error) {
	m := normalizeMime(mime)
	switch {
	case strings.HasPrefix(m, "image/"):
		return entity.MediaKindImage, entity.BucketImages, nil
	case strings.HasPrefix(m, "audio/"):
		return entity.MediaKindAudio, entity.BucketAudio, nil
	default:
		return "", "", ErrUnsupportedKind
	}
}

func MimeToExt(mime string) (string, error) {
	ext, ok := mimeToExt[normalizeMime(mime)]
	if !ok {
		return "", ErrUnsupportedMime
	}
	return ext, nil
}

// FileExtension returns the lowercase extension of name without the leading dot.
func FileExtension(name string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), ".")
	if ext == "" {
		return "", ErrNoExtension
	}
	return strings.ToLower(ext), nil
}

func MimeFromFilename(name string) (string, error) {
	ext, err := FileExtension(name)
	if err != nil {
		return "", ErrUnsupportedExtension
	}
	mime, ok := extToMime[ext]
	if !ok {
		return "", ErrUnsupportedExtension
	}
	return mime, nil
}

// MimePolicy is the per-kind allow-list applied before any byte is stored.
type MimePolicy struct {
	image         map[string]struct{}
	audio         map[string]struct{}
	audioAnyOfTop bool
}

func NewMimePolicy(imageMimes, audioMimes []string, audioPolicy string) *MimePolicy {
	return &MimePolicy{
		image:         toSet(imageMimes),
		audio:         toSet(audioMimes),
		audioAnyOfTop: audioPolicy != config.AudioMimePolicyStrict,
	}
}

func NewMimePolicyFromConfig(cfg *config.EnvConfig) *MimePolicy {
	return NewMimePolicy(cfg.Media.AllowedImageMime, cfg.Media.AllowedAudioMime, cfg.Media.AudioMimePolicy)
}

// IsAllowed reports whether mime may be stored as kind. Under the prefix
// audio policy any audio/* type passes regardless of the configured list.
func (p *MimePolicy) IsAllowed(mime string, kind entity.MediaKind) bool {
	m := normalizeMime(mime)
	switch kind {
	case entity.MediaKindImage:
		_, ok := p.image[m]
		return ok
	case entity.MediaKindAudio:
		if p.audioAnyOfTop && strings.HasPrefix(m, "audio/") {
			return true
		}
		_, ok := p.audio[m]
		return ok
	default:
		return false
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalizeMime(v)] = struct{}{}
	}
	return set
}
