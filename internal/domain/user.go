// Package domain holds the persisted data models of the relay core.
package domain

import "time"

// User mirrors the identity records managed by the external identity
// service. The relay only reads from this table (display names for
// presence announcements); it never creates or mutates users.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	DisplayName string    `gorm:"type:varchar(191)" json:"displayName"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}
