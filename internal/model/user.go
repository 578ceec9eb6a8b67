package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User represents an authenticated user. Superadmins have no tenant.
type User struct {
	BaseModel
	TenantID     *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string     `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	Role         string     `gorm:"type:varchar(20);not null" json:"role"`
	POSNumber    *int       `json:"pos_number,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	TokenVersion string     `gorm:"type:varchar(255);default:''" json:"-"` // single session enforcement
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func (u *User) IsSuperadmin() bool {
	return u.Role == RoleSuperadmin
}

func (u *User) Capabilities() []string {
	return RoleCapabilities[u.Role]
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	POSNumber    *int       `json:"pos_number,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	Capabilities []string   `json:"capabilities"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		TenantID:     u.TenantID,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		POSNumber:    u.POSNumber,
		IsActive:     u.IsActive,
		LastSeenAt:   u.LastSeenAt,
		Capabilities: u.Capabilities(),
	}
}
