package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kalungi/estate-management/internal"
	notificationmodel "github.com/kalungi/estate-management/internal/core/datamodel/notification"
	paymentmodel "github.com/kalungi/estate-management/internal/core/datamodel/payment"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
	"github.com/kalungi/estate-management/internal/payment"
)

func TestPaymentRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Repository Suite")
}

// PaymentSQLite is a test-specific version with text instead of jsonb for
// SQLite compatibility.
type PaymentSQLite struct {
	ID              int64      `gorm:"primaryKey"`
	ReservationID   int64      `gorm:"column:reservation_id;not null;index"`
	Gateway         string     `gorm:"column:gateway;not null;uniqueIndex:idx_gateway_reference"`
	ExternalRef     string     `gorm:"column:external_reference;not null;uniqueIndex:idx_gateway_reference"`
	Amount          int64      `gorm:"column:amount;not null"`
	Currency        string     `gorm:"column:currency;not null"`
	Status          string     `gorm:"column:status;not null;default:initialized"`
	GatewayState    *string    `gorm:"column:gateway_state"`
	ProviderPayload string     `gorm:"column:provider_payload;type:text"`
	FailureReason   *string    `gorm:"column:failure_reason"`
	ProcessedAt     *time.Time `gorm:"column:processed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (PaymentSQLite) TableName() string {
	return "payments"
}

type ReservationSQLite struct {
	ID              int64     `gorm:"primaryKey"`
	ListingID       int64     `gorm:"column:listing_id;not null"`
	UserID          int64     `gorm:"column:user_id;not null"`
	ReservationType string    `gorm:"column:reservation_type;not null"`
	Amount          int64     `gorm:"column:amount;not null"`
	Currency        string    `gorm:"column:currency;not null"`
	Status          string    `gorm:"column:status;not null;default:pending"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (ReservationSQLite) TableName() string {
	return "reservations"
}

type NotificationSQLite struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Verb      string    `gorm:"column:verb;not null"`
	Payload   string    `gorm:"column:payload;type:text"`
	Channel   string    `gorm:"column:channel;not null;default:in_app"`
	IsRead    bool      `gorm:"column:is_read;default:false"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (NotificationSQLite) TableName() string {
	return "notifications"
}

var _ = ginkgo.Describe("PaymentRepository", func() {
	var (
		db   *gorm.DB
		repo *PaymentRepository
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			TranslateError: true,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&PaymentSQLite{}, &ReservationSQLite{}, &NotificationSQLite{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewPaymentRepository(db)
	})

	newPayment := func(reservationID int64, externalRef string) *paymentmodel.Payment {
		return &paymentmodel.Payment{
			ReservationID: reservationID,
			Gateway:       paymentmodel.GatewayFlutterwave,
			ExternalRef:   externalRef,
			Amount:        50000,
			Currency:      "UGX",
			Status:        paymentmodel.StatusInitialized,
		}
	}

	ginkgo.Describe("Create", func() {
		ginkgo.It("should insert the payment and set its ID", func() {
			p := newPayment(1, "FLW-1-abcd1234")

			err := repo.Create(p)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p.ID).To(gomega.BeNumerically(">", 0))
		})

		ginkgo.It("should map a duplicate gateway reference to the duplicate error", func() {
			gomega.Expect(repo.Create(newPayment(1, "FLW-1-abcd1234"))).To(gomega.Succeed())

			err := repo.Create(newPayment(2, "FLW-1-abcd1234"))

			gomega.Expect(err).To(gomega.MatchError(internal.ErrDuplicateInitialization))
		})

		ginkgo.It("should allow the same reference under a different gateway", func() {
			gomega.Expect(repo.Create(newPayment(1, "shared-ref"))).To(gomega.Succeed())

			second := newPayment(2, "shared-ref")
			second.Gateway = paymentmodel.GatewayPayPal

			gomega.Expect(repo.Create(second)).To(gomega.Succeed())
		})
	})

	ginkgo.Describe("GetByGatewayReference", func() {
		ginkgo.BeforeEach(func() {
			gomega.Expect(repo.Create(newPayment(1, "FLW-1-abcd1234"))).To(gomega.Succeed())
		})

		ginkgo.It("should resolve the payment by gateway and reference", func() {
			p, err := repo.GetByGatewayReference(paymentmodel.GatewayFlutterwave, "FLW-1-abcd1234")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p.ReservationID).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("should not resolve the reference under another gateway", func() {
			_, err := repo.GetByGatewayReference(paymentmodel.GatewayPayPal, "FLW-1-abcd1234")

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("GetActiveByReservationID", func() {
		ginkgo.It("should return nil without error when nothing is in flight", func() {
			p, err := repo.GetActiveByReservationID(1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p).To(gomega.BeNil())
		})

		ginkgo.It("should return the initialized payment", func() {
			gomega.Expect(repo.Create(newPayment(1, "FLW-1-abcd1234"))).To(gomega.Succeed())

			p, err := repo.GetActiveByReservationID(1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p).ToNot(gomega.BeNil())
			gomega.Expect(p.Status).To(gomega.Equal(paymentmodel.StatusInitialized))
		})

		ginkgo.It("should ignore settled payments", func() {
			settled := newPayment(1, "FLW-1-abcd1234")
			settled.Status = paymentmodel.StatusRejected
			gomega.Expect(repo.Create(settled)).To(gomega.Succeed())

			p, err := repo.GetActiveByReservationID(1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("GetLatestByReservationID", func() {
		ginkgo.It("should return the most recent payment", func() {
			first := newPayment(1, "FLW-1-first")
			first.Status = paymentmodel.StatusRejected
			first.CreatedAt = time.Now().Add(-2 * time.Hour)
			gomega.Expect(repo.Create(first)).To(gomega.Succeed())

			second := newPayment(1, "FLW-1-second")
			second.CreatedAt = time.Now().Add(-1 * time.Hour)
			gomega.Expect(repo.Create(second)).To(gomega.Succeed())

			p, err := repo.GetLatestByReservationID(1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p.ExternalRef).To(gomega.Equal("FLW-1-second"))
		})

		ginkgo.It("should return an error when the reservation has no payments", func() {
			_, err := repo.GetLatestByReservationID(999)

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("SetGatewayState", func() {
		ginkgo.It("should store the provider sub-state", func() {
			p := newPayment(1, "PAYPAL-ORDER-1")
			p.Gateway = paymentmodel.GatewayPayPal
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			err := repo.SetGatewayState(p.ID, "capture_pending")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			reloaded, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(reloaded.GatewayState).ToNot(gomega.BeNil())
			gomega.Expect(*reloaded.GatewayState).To(gomega.Equal("capture_pending"))
		})
	})

	ginkgo.Describe("ApplyTransition", func() {
		ginkgo.It("should report not applied when the payment has already settled", func() {
			settled := newPayment(1, "FLW-1-abcd1234")
			settled.Status = paymentmodel.StatusConfirmed
			gomega.Expect(repo.Create(settled)).To(gomega.Succeed())

			applied, err := repo.ApplyTransition(context.Background(), payment.Transition{
				PaymentID:         settled.ID,
				PaymentStatus:     paymentmodel.StatusConfirmed,
				ReservationID:     1,
				ReservationStatus: reservationmodel.StatusPaid,
				Notification: &notificationmodel.Notification{
					UserID: 10,
					Verb:   "reservation payment confirmed",
				},
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(applied).To(gomega.BeFalse())

			var count int64
			gomega.Expect(db.Model(&NotificationSQLite{}).Count(&count).Error).To(gomega.Succeed())
			gomega.Expect(count).To(gomega.BeZero())
		})
	})
})
