package repository

import (
	"github.com/tnqbao/gau-media-gateway/infra"
)

type Repository struct {
	MediaRepo *MediaRepository
}

func InitRepository(infra *infra.Infra) *Repository {
	return &Repository{
		MediaRepo: NewMediaRepository(infra.Postgres.DB),
	}
}
