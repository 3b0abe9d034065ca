package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/repository"
	"github.com/tnqbao/gau-media-gateway/utils"
)

func uploadInput(owner uuid.UUID, mime, filename string, size int) UploadInput {
	return UploadInput{
		OwnerID:  owner,
		Mime:     mime,
		Filename: filename,
		Size:     int64(size),
		Body:     bytes.NewReader(make([]byte, size)),
	}
}

func TestUploadStoresObjectAndRecord(t *testing.T) {
	h := newHarness()
	owner := uuid.New()

	result, err := h.orch.Upload(context.Background(), uploadInput(owner, "image/png", "cat.png", 1024))
	require.NoError(t, err)

	media := result.Media
	assert.NotEqual(t, uuid.Nil, media.ID)
	assert.Equal(t, owner, media.UserID)
	assert.Equal(t, entity.MediaKindImage, media.Kind)
	assert.Equal(t, entity.BucketImages, media.Bucket)
	assert.Equal(t, int64(1024), media.SizeBytes)
	assert.True(t, strings.HasPrefix(media.Path, owner.String()+"/"))
	assert.True(t, strings.HasSuffix(media.Path, ".png"))
	assert.True(t, h.objects.has(media.Bucket, media.Path))
	assert.Contains(t, result.PreviewURL, "ttl=600")

	_, err = h.store.FindByIDAndOwner(context.Background(), media.ID, owner)
	assert.NoError(t, err)
}

func TestUploadFallsBackToFilename(t *testing.T) {
	h := newHarness()

	result, err := h.orch.Upload(context.Background(), uploadInput(uuid.New(), "application/octet-stream", "voice.m4a", 10))
	require.NoError(t, err)
	assert.Equal(t, "audio/m4a", result.Media.Mime)
	assert.Equal(t, entity.BucketAudio, result.Media.Bucket)
	assert.True(t, strings.HasSuffix(result.Media.Path, ".m4a"))
}

func TestUploadValidationHappensBeforeAnyWrite(t *testing.T) {
	cases := []struct {
		name     string
		mime     string
		filename string
		size     int
		sentinel error
	}{
		{"unsupported kind", "video/mp4", "clip.mp4", 10, ErrUnsupportedKind},
		{"image not on allow-list", "image/gif", "anim.gif", 10, ErrMimeNotAllowed},
		{"audio without extension mapping", "audio/flac", "song.flac", 10, ErrUnsupportedMime},
		{"empty body", "image/png", "a.png", 0, ErrEmptyFile},
		{"unknown filename fallback", "", "archive.zip", 10, ErrUnsupportedMime},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.orch.Upload(context.Background(), uploadInput(uuid.New(), tc.mime, tc.filename, tc.size))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Empty(t, h.objects.calls)
			assert.Empty(t, h.store.records)
		})
	}
}

func TestUploadSizeCeilingIsPerKind(t *testing.T) {
	h := newHarness(func(l *Limits) {
		l.MaxImageBytes = 100
		l.MaxAudioBytes = 1000
	})

	_, err := h.orch.Upload(context.Background(), uploadInput(uuid.New(), "image/jpeg", "a.jpg", 101))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = h.orch.Upload(context.Background(), uploadInput(uuid.New(), "image/jpeg", "a.jpg", 100))
	assert.NoError(t, err)

	_, err = h.orch.Upload(context.Background(), uploadInput(uuid.New(), "audio/mpeg", "a.mp3", 500))
	assert.NoError(t, err)

	_, err = h.orch.Upload(context.Background(), uploadInput(uuid.New(), "audio/mpeg", "a.mp3", 1001))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadStorageFailureWritesNoMetadata(t *testing.T) {
	h := newHarness()
	h.objects.putErr = errBoom

	_, err := h.orch.Upload(context.Background(), uploadInput(uuid.New(), "image/png", "a.png", 10))
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, h.store.records)
	assert.Empty(t, h.orphans.orphans)
}

func TestUploadPersistenceFailureCompensates(t *testing.T) {
	h := newHarness()
	h.store.createErr = errBoom
	owner := uuid.New()

	_, err := h.orch.Upload(context.Background(), uploadInput(owner, "image/png", "a.png", 10))
	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, []string{"put", "remove"}, h.objects.calls)
	assert.Empty(t, h.objects.objects)

	require.Len(t, h.orphans.orphans, 1)
	orphan := h.orphans.orphans[0]
	assert.True(t, orphan.Removed)
	assert.Equal(t, owner, orphan.OwnerID)
	assert.Equal(t, entity.BucketImages, orphan.Bucket)
	assert.ErrorIs(t, orphan.Cause, errBoom)
}

func TestUploadPersistenceFailureWithFailedCleanup(t *testing.T) {
	h := newHarness()
	h.store.createErr = errBoom
	h.objects.removeErr = errBoom

	_, err := h.orch.Upload(context.Background(), uploadInput(uuid.New(), "audio/aac", "a.aac", 10))
	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))

	require.Len(t, h.orphans.orphans, 1)
	assert.False(t, h.orphans.orphans[0].Removed)
	assert.Len(t, h.objects.objects, 1)
}

func TestUploadSucceedsWhenPreviewSigningFails(t *testing.T) {
	h := newHarness()
	h.broker.objects = &failingPresigner{fakeObjects: h.objects}

	result, err := h.orch.Upload(context.Background(), uploadInput(uuid.New(), "image/webp", "a.webp", 10))
	require.NoError(t, err)
	assert.Empty(t, result.PreviewURL)
	assert.NotNil(t, result.Media)
}

type failingPresigner struct {
	*fakeObjects
}

func (f *failingPresigner) PresignGet(context.Context, string, string, time.Duration) (string, error) {
	return "", errBoom
}

func TestRequestSignedUpload(t *testing.T) {
	h := newHarness()
	owner := uuid.New()

	grant, err := h.orch.RequestSignedUpload(context.Background(), owner, "image/png")
	require.NoError(t, err)
	assert.Equal(t, entity.BucketImages, grant.Bucket)
	assert.True(t, strings.HasPrefix(grant.Path, owner.String()+"/"))
	assert.True(t, strings.HasSuffix(grant.Path, ".png"))
	assert.Contains(t, grant.UploadURL, grant.Path)
	assert.NoError(t, utils.VerifyUploadToken(h.limits.TokenSecret, grant.Token, "images", grant.Path, owner.String(), time.Now()))
	assert.Empty(t, h.objects.objects)
}

func TestRequestSignedUploadRejectsBeforeSigning(t *testing.T) {
	h := newHarness()

	_, err := h.orch.RequestSignedUpload(context.Background(), uuid.New(), "image/gif")
	assert.ErrorIs(t, err, ErrMimeNotAllowed)

	_, err = h.orch.RequestSignedUpload(context.Background(), uuid.New(), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = h.orch.RequestSignedUpload(context.Background(), uuid.New(), " ")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestSignedUploadThenCommitRoundTrip(t *testing.T) {
	h := newHarness()
	owner := uuid.New()

	grant, err := h.orch.RequestSignedUpload(context.Background(), owner, "image/png")
	require.NoError(t, err)

	media, err := h.orch.Commit(context.Background(), CommitInput{
		OwnerID:   owner,
		Bucket:    string(grant.Bucket),
		Path:      grant.Path,
		Mime:      "image/png",
		SizeBytes: 2048,
		Kind:      "image",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MediaKindImage, media.Kind)
	assert.Equal(t, grant.Path, media.Path)
	assert.Equal(t, int64(2048), media.SizeBytes)
}

func TestCommitValidation(t *testing.T) {
	owner := uuid.New()
	width := 100
	duration := 3.5
	valid := CommitInput{
		OwnerID:   owner,
		Bucket:    "images",
		Path:      owner.String() + "/2024/01/01/x.png",
		Mime:      "image/png",
		SizeBytes: 10,
		Kind:      "image",
	}

	cases := []struct {
		name     string
		mutate   func(*CommitInput)
		sentinel error
	}{
		{"missing path", func(in *CommitInput) { in.Path = "" }, ErrMissingField},
		{"missing size", func(in *CommitInput) { in.SizeBytes = 0 }, ErrMissingField},
		{"missing kind", func(in *CommitInput) { in.Kind = "" }, ErrMissingField},
		{"bad bucket", func(in *CommitInput) { in.Bucket = "videos" }, ErrInvalidBucket},
		{"bad kind", func(in *CommitInput) { in.Kind = "video" }, ErrInvalidKind},
		{"mime disagrees with kind", func(in *CommitInput) { in.Mime = "audio/mpeg" }, ErrKindMismatch},
		{"bucket disagrees with kind", func(in *CommitInput) { in.Bucket = "audio" }, ErrKindMismatch},
		{"too large", func(in *CommitInput) { in.SizeBytes = 11 * bytesPerMB }, ErrFileTooLarge},
		{"foreign path", func(in *CommitInput) { in.Path = uuid.NewString() + "/x.png" }, ErrPathNotOwned},
		{"traversal", func(in *CommitInput) { in.Path = owner.String() + "/../other/x.png" }, ErrPathNotOwned},
		{"duration on image", func(in *CommitInput) { in.DurationSec = &duration }, ErrInvalidMetadata},
		{"width on audio", func(in *CommitInput) {
			in.Bucket, in.Kind, in.Mime = "audio", "audio", "audio/mpeg"
			in.Width = &width
		}, ErrInvalidMetadata},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			in := valid
			tc.mutate(&in)

			_, err := h.orch.Commit(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Empty(t, h.store.records)
		})
	}
}

func TestCommitTrustsClientByDefault(t *testing.T) {
	h := newHarness()
	owner := uuid.New()

	_, err := h.orch.Commit(context.Background(), CommitInput{
		OwnerID:   owner,
		Bucket:    "audio",
		Path:      owner.String() + "/2024/01/01/never-uploaded.mp3",
		Mime:      "audio/mpeg",
		SizeBytes: 99,
		Kind:      "audio",
	})
	assert.NoError(t, err)
}

func TestCommitRequiresValidToken(t *testing.T) {
	h := newHarness(func(l *Limits) { l.CommitRequireToken = true })
	owner := uuid.New()

	grant, err := h.orch.RequestSignedUpload(context.Background(), owner, "audio/mp3")
	require.NoError(t, err)

	in := CommitInput{
		OwnerID:   owner,
		Bucket:    string(grant.Bucket),
		Path:      grant.Path,
		Mime:      "audio/mp3",
		SizeBytes: 10,
		Kind:      "audio",
		Token:     "123.deadbeef",
	}
	_, err = h.orch.Commit(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidToken)

	in.Token = grant.Token
	_, err = h.orch.Commit(context.Background(), in)
	assert.NoError(t, err)
}

func TestCommitVerifiesObjectWhenEnabled(t *testing.T) {
	h := newHarness(func(l *Limits) { l.CommitVerifyObject = true })
	owner := uuid.New()
	path := owner.String() + "/2024/01/01/a.png"
	in := CommitInput{OwnerID: owner, Bucket: "images", Path: path, Mime: "image/png", SizeBytes: 10, Kind: "image"}

	_, err := h.orch.Commit(context.Background(), in)
	assert.ErrorIs(t, err, ErrObjectMissing)

	h.objects.objects[objectKey("images", path)] = 777
	media, err := h.orch.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(777), media.SizeBytes)
}

func TestCommitPersistenceFailure(t *testing.T) {
	h := newHarness()
	h.store.createErr = errBoom
	owner := uuid.New()

	_, err := h.orch.Commit(context.Background(), CommitInput{
		OwnerID: owner, Bucket: "images", Path: owner.String() + "/a.png",
		Mime: "image/png", SizeBytes: 1, Kind: "image",
	})
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Empty(t, h.orphans.orphans)
}

func TestCommitTwiceIsRejected(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	in := CommitInput{
		OwnerID: owner, Bucket: "images", Path: owner.String() + "/2024/01/01/a.png",
		Mime: "image/png", SizeBytes: 1, Kind: "image",
	}

	_, err := h.orch.Commit(context.Background(), in)
	require.NoError(t, err)

	_, err = h.orch.Commit(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.ErrorIs(t, err, ErrDuplicateMedia)
	assert.Equal(t, "media already committed", err.Error())
	assert.Len(t, h.store.records, 1)
}

func TestUploadPathCollisionKeepsExistingObject(t *testing.T) {
	h := newHarness()
	h.store.createErr = fmt.Errorf("failed to insert media: %w", repository.ErrDuplicateMedia)

	_, err := h.orch.Upload(context.Background(), uploadInput(uuid.New(), "image/png", "a.png", 10))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.ErrorIs(t, err, ErrDuplicateMedia)
	assert.Equal(t, []string{"put"}, h.objects.calls)
	assert.Empty(t, h.orphans.orphans)
}

func TestConcurrentUploadsProduceDistinctPaths(t *testing.T) {
	h := newHarness()
	owner := uuid.New()

	paths := make(chan string, 50)
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			result, err := h.orch.Upload(context.Background(), uploadInput(owner, "image/png", "a.png", 8))
			if err == nil {
				paths <- result.Media.Path
			}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	close(paths)

	seen := map[string]struct{}{}
	for p := range paths {
		seen[p] = struct{}{}
	}
	assert.Len(t, seen, 50)
}
