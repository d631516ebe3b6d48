package notification

import (
	"log/slog"

	errors "github.com/kalungi/estate-management/internal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the recipient's feed, newest first.
func (s *Service) List(userID int64, limit, offset int) ([]NotificationView, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.repo.ListByUserID(userID, limit, offset)
	if err != nil {
		return nil, errors.NewInternalError("failed to list notifications", err)
	}

	views := make([]NotificationView, 0, len(rows))
	for i := range rows {
		views = append(views, *ToView(&rows[i]))
	}
	return views, nil
}

func (s *Service) UnreadCount(userID int64) (int64, error) {
	count, err := s.repo.CountUnread(userID)
	if err != nil {
		return 0, errors.NewInternalError("failed to count unread notifications", err)
	}
	return count, nil
}

// MarkRead flips the read flag for the recipient. Anyone else gets a
// not-found, never a hint that the notification exists.
func (s *Service) MarkRead(userID, id int64) (*NotificationView, error) {
	applied, err := s.repo.MarkRead(id, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to mark notification read", err)
	}
	if !applied {
		return nil, errors.ErrNotificationNotFound
	}

	n, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.NewInternalError("failed to reload notification", err)
	}
	return ToView(n), nil
}
