// Package jobs holds queued background jobs.
package jobs

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/pkg/logger"
	"github.com/elmesiashu/tenseishitara/pkg/mail"
	"github.com/elmesiashu/tenseishitara/pkg/metrics"
	"github.com/elmesiashu/tenseishitara/pkg/queue"
)

// jobDB is the handle queued jobs read from. Jobs are rebuilt from JSON by
// the queue, so dependencies arrive through Init at boot rather than
// through constructors.
var jobDB *gorm.DB

// Init wires job dependencies and registers every job type with the queue.
// Call once at boot, after the database is connected.
func Init(db *gorm.DB) {
	jobDB = db
	queue.Register("*jobs.OrderConfirmationJob", func() queue.Job { return &OrderConfirmationJob{} })
}

// OrderConfirmationJob emails the shopper their receipt after checkout.
type OrderConfirmationJob struct {
	OrderID uint `json:"order_id"`
}

func (j *OrderConfirmationJob) Handle() error {
	start := time.Now()

	var order models.Order
	if err := jobDB.Preload("Items").First(&order, j.OrderID).Error; err != nil {
		metrics.RecordQueueJob("order_confirmation", "failed", start)
		return fmt.Errorf("order confirmation: load order %d: %w", j.OrderID, err)
	}

	var user models.User
	if err := jobDB.First(&user, order.UserID).Error; err != nil {
		metrics.RecordQueueJob("order_confirmation", "failed", start)
		return fmt.Errorf("order confirmation: load user %d: %w", order.UserID, err)
	}

	err := mail.To(user.Email).
		Subject(fmt.Sprintf("Order %s confirmed", order.OrderNo)).
		Body(receiptHTML(user, order)).
		Send()
	if err != nil {
		metrics.RecordQueueJob("order_confirmation", "failed", start)
		return fmt.Errorf("order confirmation: send: %w", err)
	}

	metrics.RecordQueueJob("order_confirmation", "success", start)
	logger.Info("order confirmation sent", "order_no", order.OrderNo, "email", user.Email)
	return nil
}

func receiptHTML(user models.User, order models.Order) string {
	body := fmt.Sprintf("<h1>Thanks, %s!</h1><p>Your order <b>%s</b> has been placed.</p><ul>",
		user.Name, order.OrderNo)
	for _, item := range order.Items {
		body += fmt.Sprintf("<li>%s &times; %d @ $%.2f</li>", item.Name, item.Quantity, item.Price)
	}
	body += fmt.Sprintf("</ul><p>Total: <b>$%.2f</b></p><p>Tracking number: %s</p><p>Estimated delivery: %s</p>",
		order.Total, order.TrackingNo, order.EstimatedDelivery().Format("Jan 2, 2006"))
	return body
}
