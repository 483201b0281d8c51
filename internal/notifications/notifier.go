package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
	"github.com/orderflow/orderflow-backend/pkg/logger"
)

// floristLister is the slice of the user repository the notifier needs.
type floristLister interface {
	ListFlorists(ctx context.Context) ([]models.User, error)
}

// Notifier fans out order events to the customer and to every florist.
// Dispatch is fire-and-forget: a broker failure is logged and never bubbles
// into the calling workflow.
type Notifier struct {
	publisher Publisher
	florists  floristLister
	logg      *logger.Logger
	timeout   time.Duration
}

// NewNotifier constructs the notifier.
func NewNotifier(publisher Publisher, florists floristLister, logg *logger.Logger) (*Notifier, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if florists == nil {
		return nil, fmt.Errorf("florist lister required")
	}
	return &Notifier{
		publisher: publisher,
		florists:  florists,
		logg:      logg,
		timeout:   10 * time.Second,
	}, nil
}

// OrderConfirmed dispatches order.confirmed events in the background. The
// caller's transaction has already committed by the time this runs.
func (n *Notifier) OrderConfirmed(order *models.Order) {
	snapshot := *order
	go n.dispatch(snapshot)
}

func (n *Notifier) dispatch(order models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if n.logg != nil {
		ctx = n.logg.WithField(ctx, "order_number", order.OrderNumber)
	}

	n.publish(ctx, order, RecipientCustomer, order.UserID)

	florists, err := n.florists.ListFlorists(ctx)
	if err != nil {
		n.warn(ctx, "listing florists for notification failed", err)
		return
	}
	for _, florist := range florists {
		n.publish(ctx, order, RecipientFlorist, florist.ID)
	}
}

func (n *Notifier) publish(ctx context.Context, order models.Order, recipientType string, recipientID uuid.UUID) {
	event := OrderEvent{
		EventID:       uuid.New(),
		EventType:     EventTypeOrderConfirmed,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		RecipientType: recipientType,
		RecipientID:   recipientID,
		TotalAmount:   order.TotalAmount,
		OccurredAt:    time.Now().UTC(),
	}
	if err := n.publisher.PublishOrderEvent(ctx, event); err != nil {
		n.warn(ctx, "publishing order event failed", err)
	}
}

func (n *Notifier) warn(ctx context.Context, msg string, err error) {
	if n.logg == nil {
		return
	}
	n.logg.Warn(n.logg.WithField(ctx, "error", err.Error()), msg)
}
