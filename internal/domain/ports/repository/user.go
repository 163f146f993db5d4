package repository

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}
