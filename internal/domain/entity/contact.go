package entity

import (
	"fmt"
	"time"
)

// Contact хранит сообщение, отправленное посетителем через контактную форму
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:254;not null" json:"email"`
	Subject   string    `gorm:"size:200;not null" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Contact) TableName() string {
	return "contacts"
}

func (c Contact) String() string {
	return fmt.Sprintf("%s - %s", c.Name, c.Subject)
}
