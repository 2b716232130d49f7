package interfaces

import (
	"context"

	"github.com/customeros/waitlist/dto"
)

type Mailer interface {
	Send(ctx context.Context, message dto.OutgoingMessage) error
}
