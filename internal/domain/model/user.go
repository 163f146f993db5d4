package model

import "time"

// User is the slim projection of the hosted-auth user record this
// service needs for checkout payer info. Registration and sessions live
// in the hosted backend.
type User struct {
	ID        string // UUID issued by the auth platform
	Email     string
	Name      string
	CreatedAt time.Time
}
