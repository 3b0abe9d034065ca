package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PathBuilder derives object keys of the form {owner}/{YYYY}/{MM}/{DD}/{id}.{ext}.
// Dates are taken in UTC.
type PathBuilder struct {
	Now   func() time.Time
	NewID func() string
}

func NewPathBuilder() *PathBuilder {
	return &PathBuilder{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

func (b *PathBuilder) Build(ownerID, ext string) string {
	now := b.Now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.%s",
		ownerID, now.Year(), int(now.Month()), now.Day(), b.NewID(), ext)
}

var defaultPathBuilder = NewPathBuilder()

func BuildStoragePath(ownerID, ext string) string {
	return defaultPathBuilder.Build(ownerID, ext)
}
