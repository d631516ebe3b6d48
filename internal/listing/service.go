package listing

import (
	"log/slog"

	errors "github.com/kalungi/estate-management/internal"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(id int64) (*ListingView, error) {
	l, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrListingNotFound
	}
	if !l.IsActive {
		return nil, errors.ErrListingNotFound
	}
	return ToView(l), nil
}

func (s *Service) List(filter Filter) ([]ListingView, error) {
	rows, err := s.repo.ListActive(filter)
	if err != nil {
		return nil, errors.NewInternalError("failed to list listings", err)
	}

	views := make([]ListingView, 0, len(rows))
	for i := range rows {
		views = append(views, *ToView(&rows[i]))
	}
	return views, nil
}
