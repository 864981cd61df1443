package publisher

import (
	"context"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

// Publisher is the delivery capability used by the dispatch worker. A nil
// return means the message was delivered; a non-nil return is a delivery
// failure and schedules a retry. The transport behind it (bus or HTTP) is
// irrelevant to the folder contract.
type Publisher interface {
	Send(ctx context.Context, msg message.Message) error
}
