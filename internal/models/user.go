package models

import (
	"fmt"
	"strings"
	"time"
)

// Role decides which dashboard and navigation a user sees.
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleConsumer Role = "consumer"
)

func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleConsumer
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (want farmer or consumer)", s)
	}
	return r, nil
}

// User is the authenticated actor as seen by the client.
// Identity is an email or a phone number depending on the identity provider.
type User struct {
	Identity string `json:"identity"`
	Role     Role   `json:"role"`
	Name     string `json:"name,omitempty"`
}

// Account is a user registered with the backend's local identity service.
type Account struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)" bson:"_id"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" bson:"email" validate:"required,email"`
	Name      string    `json:"name,omitempty" gorm:"type:varchar(100)" bson:"name,omitempty" validate:"omitempty,max=100"`
	Role      Role      `json:"role" gorm:"type:varchar(20)" bson:"role" validate:"required,oneof=farmer consumer"`
	Password  string    `json:"-" gorm:"type:varchar(255)" bson:"password"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
