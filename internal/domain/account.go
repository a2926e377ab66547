package domain

import (
	"time"

	"gorm.io/gorm"
)

// Realm is an isolated identity domain. Customer and employee accounts share
// the same schema but never share tokens or cookies.
type Realm string

const (
	RealmCustomer Realm = "customer"
	RealmEmployee Realm = "employee"
)

func (r Realm) Valid() bool {
	return r == RealmCustomer || r == RealmEmployee
}

type AccountStatus string

const (
	AccountActive  AccountStatus = "active"
	AccountBlocked AccountStatus = "blocked"
)

type EmployeeRole string

const (
	EmployeeAdmin EmployeeRole = "admin"
	EmployeeStaff EmployeeRole = "staff"
)

type Account struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"size:255;not null;uniqueIndex:idx_accounts_email_realm" json:"email"`
	Realm        Realm          `gorm:"size:16;not null;uniqueIndex:idx_accounts_email_realm;index" json:"realm"`
	PasswordHash *string        `gorm:"size:128" json:"-"`
	EmployeeRole EmployeeRole   `gorm:"size:16" json:"employee_role,omitempty"`
	Status       AccountStatus  `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
