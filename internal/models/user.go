package models

import "time"

type Role string

const (
	RoleClient string = "client"
	RoleAdmin  string = "admin"
)

// Статусы пользователей
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	Status string `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	// Недельный бюджет часов и кешированный счетчик текущей недели (для UI)
	WeekHours        float64 `gorm:"not null;default:0" json:"week_hours"`
	CurrentWeekHours float64 `gorm:"not null;default:0" json:"current_week_hours"`

	// Привязка к чату нужна только для командного интерфейса бота
	ChatID *int64 `gorm:"uniqueIndex" json:"chat_id,omitempty"`
	Role   string `gorm:"default:'client'" json:"role"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsAdmin проверяет, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive проверяет, участвует ли пользователь в недельном учете
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// TableName задает имя таблицы в БД
func (User) TableName() string {
	return "users"
}
