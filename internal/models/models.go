package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	Name         string    `gorm:"not null"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Course struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"not null"                 json:"title"`
	Description string    `gorm:"not null"                 json:"description"`
	Category    string    `gorm:"index"                    json:"category"`
	Price       int64     `gorm:"not null"                 json:"price"`
	Lessons     uint      `gorm:"default:0"                json:"lessons"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	OrderStatusNew  = "new"
	OrderStatusPaid = "paid"
)

type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"user_id"`
	Status    string      `gorm:"not null"                 json:"status"`
	Total     int64       `gorm:"not null"                 json:"total"`
	Items     []OrderItem `gorm:"foreignKey:OrderID"       json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

type OrderItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint  `gorm:"index;not null"           json:"order_id"`
	CourseID  uint  `gorm:"not null"                 json:"course_id"`
	Quantity  uint  `gorm:"default:1;check:quantity>0" json:"quantity"`
	UnitPrice int64 `gorm:"not null"                 json:"unit_price"`
	LineTotal int64 `gorm:"not null"                 json:"line_total"`
}

type Notification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Title     string    `gorm:"not null"                 json:"title"`
	Body      string    `gorm:"not null"                 json:"body"`
	Read      bool      `gorm:"default:false"            json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
