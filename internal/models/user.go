package models

import "time"

type User struct {
	ID             string
	Email          string
	WhatsAppNumber *string
	DisplayName    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
