package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type UserStatus string

const (
	UserActive UserStatus = "Active"
	UserLocked UserStatus = "Locked"
)

func (s UserStatus) Valid() bool {
	return s == UserActive || s == UserLocked
}

type Address struct {
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number" validate:"required"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Complement   string `json:"complement,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	Zip          string `json:"zip" validate:"required"`
}

// Format renders the address the way it is printed on orders and invoices:
// "street, number - neighborhood, city - CEP: zip (complement)".
func (a Address) Format() string {
	s := fmt.Sprintf("%s, %s - %s, %s - CEP: %s", a.Street, a.Number, a.Neighborhood, a.City, a.Zip)
	if a.Complement != "" {
		s += fmt.Sprintf(" (%s)", a.Complement)
	}
	return s
}

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	Address      *Address   `json:"address,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsLocked() bool {
	return u.Status == UserLocked
}
