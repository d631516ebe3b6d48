package notification

import (
	"encoding/json"
	"time"

	notificationmodel "github.com/kalungi/estate-management/internal/core/datamodel/notification"
)

// RepositoryAPI covers the append-only notification feed. MarkRead is
// conditional on the recipient so one user can never flip another's flag.
type RepositoryAPI interface {
	Create(n *notificationmodel.Notification) error
	GetByID(id int64) (*notificationmodel.Notification, error)
	ListByUserID(userID int64, limit, offset int) ([]notificationmodel.Notification, error)
	CountUnread(userID int64) (int64, error)
	MarkRead(id, userID int64) (applied bool, err error)
}

type ServiceAPI interface {
	List(userID int64, limit, offset int) ([]NotificationView, error)
	UnreadCount(userID int64) (int64, error)
	MarkRead(userID, id int64) (*NotificationView, error)
}

type NotificationView struct {
	ID        int64           `json:"id"`
	Verb      string          `json:"verb"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Channel   string          `json:"channel"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

func ToView(n *notificationmodel.Notification) *NotificationView {
	if n == nil {
		return nil
	}
	return &NotificationView{
		ID:        n.ID,
		Verb:      n.Verb,
		Payload:   n.Payload,
		Channel:   n.Channel,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
