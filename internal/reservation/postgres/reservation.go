package postgres

import (
	"time"

	"gorm.io/gorm"

	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
	"github.com/kalungi/estate-management/internal/reservation"
)

type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository returns the concrete type; it satisfies
// reservation.RepositoryAPI and the payment core's ReservationReader.
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

var _ reservation.RepositoryAPI = (*ReservationRepository)(nil)

func (r *ReservationRepository) Create(res *reservationmodel.Reservation) error {
	return r.db.Create(res).Error
}

func (r *ReservationRepository) GetByID(id int64) (*reservationmodel.Reservation, error) {
	var res reservationmodel.Reservation
	if err := r.db.First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepository) ListByUserID(userID int64) ([]reservationmodel.Reservation, error) {
	var rows []reservationmodel.Reservation
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CancelIfPending flips pending to cancelled in one conditional update, so a
// concurrent payment settlement always wins over the cancel.
func (r *ReservationRepository) CancelIfPending(id int64) (bool, error) {
	result := r.db.Model(&reservationmodel.Reservation{}).
		Where("id = ? AND status = ?", id, reservationmodel.StatusPending).
		Updates(map[string]interface{}{
			"status":     reservationmodel.StatusCancelled,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
