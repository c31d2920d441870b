package users

import (
	"time"

	"github.com/google/uuid"
)

// Role values carried in access token claims. Tokens are issued by the
// external identity service; the engine only reads them.
type Role string

const (
	RolePlayer Role = "player"
	RoleStaff  Role = "staff"
)

// User is the minimal player read model the engine needs: skill level for
// open-game matching and the active flag. Account management lives in an
// external identity service.
type User struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID   uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:uq_users_tenant_email"`
	Email      string    `json:"email" gorm:"not null;uniqueIndex:uq_users_tenant_email"`
	FullName   string    `json:"full_name" gorm:"not null"`
	SkillLevel *float64  `json:"skill_level,omitempty" gorm:"type:numeric(3,1)"`
	IsActive   bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
