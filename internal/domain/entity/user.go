package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User представляет учетную запись, которая может входить в админ-панель
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email     string     `gorm:"size:254;not null;default:''" json:"email"`
	Password  string     `gorm:"size:128;not null" json:"-"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	IsStaff   bool       `gorm:"not null;default:false" json:"is_staff"`
	LastLogin *time.Time `gorm:"type:timestamp" json:"last_login,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// CanAccessAdmin возвращает true, если учетная запись активна и имеет права администратора
func (u *User) CanAccessAdmin() bool {
	return u.IsActive && u.IsStaff
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) > 0 && !isBcryptHash(u.Password) {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] Ошибка при хешировании пароля для username=%s: %v", u.Username, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
