package domain

import "time"

type (
	User struct {
		ID       int64
		Username string
		IsStaff  bool
	}

	Order struct {
		ID              int64
		DeliveryAddress string
		Promocode       string
		CreatedAt       time.Time
		User            User
		Products        []Product
	}
)
