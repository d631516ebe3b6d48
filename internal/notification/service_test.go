package notification_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kalungi/estate-management/internal"
	notificationmodel "github.com/kalungi/estate-management/internal/core/datamodel/notification"
	"github.com/kalungi/estate-management/internal/core/events"
	"github.com/kalungi/estate-management/internal/notification"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type mockNotificationRepository struct {
	mu            sync.Mutex
	notifications map[int64]*notificationmodel.Notification
	nextID        int64
	listErr       error
}

func newMockNotificationRepository() *mockNotificationRepository {
	return &mockNotificationRepository{
		notifications: make(map[int64]*notificationmodel.Notification),
		nextID:        1,
	}
}

func (m *mockNotificationRepository) Create(n *notificationmodel.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.nextID
	m.nextID++
	stored := *n
	m.notifications[n.ID] = &stored
	return nil
}

func (m *mockNotificationRepository) GetByID(id int64) (*notificationmodel.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, fmt.Errorf("notification %d not found", id)
	}
	copied := *n
	return &copied, nil
}

func (m *mockNotificationRepository) ListByUserID(userID int64, limit, offset int) ([]notificationmodel.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var rows []notificationmodel.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			rows = append(rows, *n)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *mockNotificationRepository) CountUnread(userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepository) MarkRead(id, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

var _ = Describe("Notification Service", func() {
	var (
		repo    *mockNotificationRepository
		service *notification.Service
	)

	const (
		recipientID int64 = 10
		strangerID  int64 = 99
	)

	seed := func(userID int64, count int) {
		for i := 0; i < count; i++ {
			Expect(repo.Create(&notificationmodel.Notification{
				UserID:  userID,
				Verb:    "reservation payment confirmed",
				Channel: notificationmodel.ChannelInApp,
			})).To(Succeed())
		}
	}

	BeforeEach(func() {
		repo = newMockNotificationRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = notification.NewService(repo, logger)
	})

	Describe("List", func() {
		It("should return only the recipient's notifications, newest first", func() {
			seed(recipientID, 3)
			seed(strangerID, 2)

			views, err := service.List(recipientID, 20, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(3))
			Expect(views[0].ID).To(BeNumerically(">", views[1].ID))
		})

		It("should apply the default page size when the limit is unset", func() {
			seed(recipientID, 25)

			views, err := service.List(recipientID, 0, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(20))
		})

		It("should clamp oversized limits", func() {
			seed(recipientID, 120)

			views, err := service.List(recipientID, 500, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(100))
		})

		It("should treat a negative offset as zero", func() {
			seed(recipientID, 2)

			views, err := service.List(recipientID, 20, -5)

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(2))
		})
	})

	Describe("UnreadCount", func() {
		It("should count only unread rows for the recipient", func() {
			seed(recipientID, 3)
			seed(strangerID, 4)
			applied, err := repo.MarkRead(1, recipientID)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			count, err := service.UnreadCount(recipientID)

			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(int64(2)))
		})
	})

	Describe("MarkRead", func() {
		BeforeEach(func() {
			seed(recipientID, 1)
		})

		It("should flip the read flag for the recipient", func() {
			view, err := service.MarkRead(recipientID, 1)

			Expect(err).ToNot(HaveOccurred())
			Expect(view.IsRead).To(BeTrue())
		})

		It("should be idempotent for an already-read notification", func() {
			_, err := service.MarkRead(recipientID, 1)
			Expect(err).ToNot(HaveOccurred())

			view, err := service.MarkRead(recipientID, 1)

			Expect(err).ToNot(HaveOccurred())
			Expect(view.IsRead).To(BeTrue())
		})

		It("should hide another user's notification behind not-found", func() {
			_, err := service.MarkRead(strangerID, 1)

			Expect(err).To(MatchError(internal.ErrNotificationNotFound))
			Expect(repo.notifications[1].IsRead).To(BeFalse())
		})

		It("should report not found for an unknown id", func() {
			_, err := service.MarkRead(recipientID, 777)

			Expect(err).To(MatchError(internal.ErrNotificationNotFound))
		})
	})
})

type recordingSender struct {
	mu       sync.Mutex
	messages []recordedMessage
}

type recordedMessage struct {
	Recipient string
	Subject   string
	Body      string
}

func (s *recordingSender) Send(_ context.Context, recipient, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, recordedMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) snapshot() []recordedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedMessage(nil), s.messages...)
}

type staticEmailReader struct {
	emails map[int64]string
}

func (r *staticEmailReader) GetEmailByID(userID int64) (string, error) {
	email, ok := r.emails[userID]
	if !ok {
		return "", fmt.Errorf("user %d not found", userID)
	}
	return email, nil
}

var _ = Describe("Notification Dispatcher", func() {
	var (
		sender     *recordingSender
		dispatcher *notification.Dispatcher
		bus        *events.EventBus
		ctx        context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		sender = &recordingSender{}
		readers := &staticEmailReader{emails: map[int64]string{10: "amina@mail.com"}}
		dispatcher = notification.NewDispatcher(notification.DispatcherConfig{MaxWorkers: 2, JobQueueSize: 10}, sender, readers, logger)
		bus = events.NewEventBus(logger)
		dispatcher.RegisterHandlers(bus)
	})

	AfterEach(func() {
		dispatcher.Shutdown()
	})

	It("should email the payer when a payment is confirmed", func() {
		err := bus.PublishSync(ctx, events.NewPaymentConfirmedEvent(1, 2, 10, "flutterwave", "FLW-2-abcd1234", 50000, "UGX"))
		Expect(err).ToNot(HaveOccurred())

		Eventually(func() []recordedMessage {
			return sender.snapshot()
		}, time.Second, 10*time.Millisecond).Should(HaveLen(1))

		msg := sender.snapshot()[0]
		Expect(msg.Recipient).To(Equal("amina@mail.com"))
		Expect(msg.Subject).To(ContainSubstring("confirmed"))
		Expect(msg.Body).To(ContainSubstring("reservation 2"))
	})

	It("should include the failure reason when a payment is rejected", func() {
		err := bus.PublishSync(ctx, events.NewPaymentRejectedEvent(1, 2, 10, "flutterwave", "FLW-2-abcd1234", "insufficient funds"))
		Expect(err).ToNot(HaveOccurred())

		Eventually(func() []recordedMessage {
			return sender.snapshot()
		}, time.Second, 10*time.Millisecond).Should(HaveLen(1))

		Expect(sender.snapshot()[0].Body).To(ContainSubstring("insufficient funds"))
	})

	It("should drop the email when the recipient cannot be resolved", func() {
		err := bus.PublishSync(ctx, events.NewPaymentConfirmedEvent(1, 2, 77, "flutterwave", "FLW-2-abcd1234", 50000, "UGX"))
		Expect(err).ToNot(HaveOccurred())

		Consistently(func() []recordedMessage {
			return sender.snapshot()
		}, 200*time.Millisecond, 20*time.Millisecond).Should(BeEmpty())
	})
})
