package models

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var ErrPasswordTooShort = fmt.Errorf("password too short (min %d)", MinPasswordLength)

// HashPassword applies the password policy and returns the bcrypt hash.
func HashPassword(password string) ([]byte, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// FindUser loads a user with its role.
func FindUser(db *gorm.DB, username string) (User, error) {
	var user User
	err := db.Preload("Role").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("user %s not found", username)
	}
	return user, err
}

// SetPassword stores a new password for user.
func SetPassword(db *gorm.DB, user *User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return db.Model(user).Update("hashed_password", hash).Error
}
