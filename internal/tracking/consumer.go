package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/ignite/leadpage/internal/pkg/logger"
)

// ErrMalformedEvent marks events that can never be stored. They are deleted
// instead of being redelivered.
var ErrMalformedEvent = errors.New("malformed selection event")

// QueueAPI is the subset of the SQS client used by Consumer.
type QueueAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer drains selection events from SQS into the contact_selections
// table.
type Consumer struct {
	sqsClient QueueAPI
	queueURL  string
	db        *sql.DB
	done      chan struct{}
	backoff   time.Duration
}

func NewConsumer(sqsClient QueueAPI, queueURL string, db *sql.DB) *Consumer {
	return &Consumer{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		db:        db,
		done:      make(chan struct{}),
		backoff:   5 * time.Second,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	logger.Info("selection consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if err := c.receiveOnce(ctx, 20); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("SQS receive error", "error", err.Error())
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}
}

// receiveOnce handles one batch. Malformed messages are dropped; messages
// that fail to store stay on the queue for redelivery.
func (c *Consumer) receiveOnce(ctx context.Context, waitSeconds int32) error {
	out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return err
	}

	for _, msg := range out.Messages {
		var evt SelectionEvent
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &evt); err != nil {
			logger.Warn("SQS bad message", "error", err.Error())
			c.deleteMessage(ctx, msg.ReceiptHandle)
			continue
		}

		if err := c.processEvent(ctx, evt); err != nil {
			if errors.Is(err, ErrMalformedEvent) {
				logger.Warn("SQS bad message", "event_type", string(evt.EventType), "error", err.Error())
				c.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}
			logger.Error("SQS process error", "event_type", string(evt.EventType), "error", err.Error())
			continue
		}

		c.deleteMessage(ctx, msg.ReceiptHandle)
	}
	return nil
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	if _, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	}); err != nil {
		logger.Warn("SQS delete error", "error", err.Error())
	}
}

func (c *Consumer) processEvent(ctx context.Context, evt SelectionEvent) error {
	switch evt.EventType {
	case EventContactSelected:
		return c.storeSelection(ctx, evt)
	default:
		logger.Warn("unknown event type", "event_type", string(evt.EventType))
		return nil
	}
}

func (c *Consumer) storeSelection(ctx context.Context, evt SelectionEvent) error {
	id, err := uuid.Parse(evt.EventID)
	if err != nil {
		id = uuid.New()
	}
	pageID, err := uuid.Parse(evt.PageID)
	if err != nil {
		return fmt.Errorf("%w: page id %q: %v", ErrMalformedEvent, evt.PageID, err)
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO contact_selections (id, page_id, slug, target_id, phone_number, ip_address, user_agent, selected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, id, pageID, evt.Slug, evt.TargetID, evt.PhoneNumber, evt.IPAddress, evt.UserAgent, evt.Timestamp)
	if err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}
