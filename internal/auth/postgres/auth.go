package postgres

import (
	"gorm.io/gorm"

	"github.com/kalungi/estate-management/internal/auth"
	usermodel "github.com/kalungi/estate-management/internal/core/datamodel/user"
)

type AuthRepository struct {
	db *gorm.DB
}

// NewAuthRepository returns the concrete type; it satisfies
// auth.RepositoryAPI and the payment core's UserReader.
func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

var _ auth.RepositoryAPI = (*AuthRepository)(nil)

func (r *AuthRepository) GetPasswordForEmail(email string) (string, int64, error) {
	var u usermodel.User
	err := r.db.Where("email = ? AND is_active = ?", email, true).First(&u).Error
	if err != nil {
		return "", 0, err
	}
	return u.PasswordHash, u.ID, nil
}

func (r *AuthRepository) GetUserByID(userID int64) (*auth.User, error) {
	var u usermodel.User
	err := r.db.Where("id = ? AND is_active = ?", userID, true).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &auth.User{ID: u.ID, Email: u.Email}, nil
}

// GetEmailByID satisfies the payment core's UserReader.
func (r *AuthRepository) GetEmailByID(userID int64) (string, error) {
	var u usermodel.User
	err := r.db.Select("email").Where("id = ?", userID).First(&u).Error
	if err != nil {
		return "", err
	}
	return u.Email, nil
}
