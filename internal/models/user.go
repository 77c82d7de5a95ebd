package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FullName        string `json:"fullName" gorm:"column:full_name;not null"`
	Email           string `json:"email" gorm:"column:email;unique;not null"`
	Password        string `json:"-" gorm:"-"` // Temporary field for password handling
	PasswordHash    string `json:"-" gorm:"column:password_hash;not null"`
	Bio             string `json:"bio" gorm:"column:bio"`
	CityOfResidence string `json:"cityOfResidence" gorm:"column:city_of_residence"`
	ProfilePhotoURL string `json:"profilePhotoUrl" gorm:"column:profile_photo_url"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
