package interfaces

import (
	"context"

	"github.com/customeros/waitlist/internal/enum"
)

type EmailFilterService interface {
	Classify(ctx context.Context, email string) (enum.AddressClassification, string)
}
