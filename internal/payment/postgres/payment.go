package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/kalungi/estate-management/internal"
	paymentmodel "github.com/kalungi/estate-management/internal/core/datamodel/payment"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
	"github.com/kalungi/estate-management/internal/payment"
)

const pgUniqueViolation = "23505"

type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository returns the concrete type; it satisfies both
// payment.RepositoryAPI and payment.TransitionStore.
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var (
	_ payment.RepositoryAPI   = (*PaymentRepository)(nil)
	_ payment.TransitionStore = (*PaymentRepository)(nil)
)

func (r *PaymentRepository) Create(p *paymentmodel.Payment) error {
	err := r.db.Create(p).Error
	if err != nil && isUniqueViolation(err) {
		return errors.ErrDuplicateInitialization
	}
	return err
}

func (r *PaymentRepository) GetByID(id int64) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayReference(gateway, externalRef string) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.
		Where("gateway = ? AND external_reference = ?", gateway, externalRef).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveByReservationID returns the reservation's initialized payment, or
// nil when none is in flight.
func (r *PaymentRepository) GetActiveByReservationID(reservationID int64) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.
		Where("reservation_id = ? AND status = ?", reservationID, paymentmodel.StatusInitialized).
		First(&p).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetLatestByReservationID(reservationID int64) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.
		Where("reservation_id = ?", reservationID).
		Order("created_at DESC, id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) SetGatewayState(id int64, state string) error {
	return r.db.Model(&paymentmodel.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_state": state,
			"updated_at":    time.Now(),
		}).Error
}

// ApplyTransition settles one payment exactly once. The payment row update is
// conditional on status still being initialized; zero rows affected means
// another writer already settled it and the whole transaction is abandoned
// with applied=false. Payment, reservation and notification commit together.
func (r *PaymentRepository) ApplyTransition(ctx context.Context, t payment.Transition) (bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&paymentmodel.Payment{}).
			Where("id = ? AND status = ?", t.PaymentID, paymentmodel.StatusInitialized).
			Updates(map[string]interface{}{
				"status":           t.PaymentStatus,
				"provider_payload": []byte(t.ProviderPayload),
				"failure_reason":   t.FailureReason,
				"gateway_state":    nil,
				"processed_at":     now,
				"updated_at":       now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var res reservationmodel.Reservation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&res, t.ReservationID).Error; err != nil {
			return err
		}

		switch res.Status {
		case reservationmodel.StatusPending:
			update := tx.Model(&reservationmodel.Reservation{}).
				Where("id = ?", res.ID).
				Updates(map[string]interface{}{
					"status":     t.ReservationStatus,
					"updated_at": now,
				})
			if update.Error != nil {
				return update.Error
			}
		case t.ReservationStatus:
			// already where the transition wants it, nothing to do
		default:
			return errors.ErrInconsistentState
		}

		if t.Notification != nil {
			if err := tx.Create(t.Notification).Error; err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return stderrors.Is(err, gorm.ErrDuplicatedKey)
}
