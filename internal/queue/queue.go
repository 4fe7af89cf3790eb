// Package queue connects the HTTP layer to the analysis worker over
// RabbitMQ and hosts the worker-side job processing.
package queue

import (
	"fmt"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// AnalyzeQueue carries queued analysis jobs.
const AnalyzeQueue = "analyze_queue"

// retryDelayMs is how long a retried message parks in the retry queue
// before it dead-letters back onto the main queue.
const retryDelayMs = 10000

// Queues returns every queue the worker consumes.
func Queues() []string {
	return []string{AnalyzeQueue}
}

// Init dials RabbitMQ from the RABBITMQ_* environment. Exits the process
// when the broker is unreachable; nothing works without it.
func Init() *amqp091.Connection {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		util.GetEnvString("RABBITMQ_USER", "guest"),
		util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
	conn, err := amqp091.Dial(url)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	return conn
}

// SetupQueues declares each queue together with its dead-letter and retry
// companions. The retry queue holds messages for retryDelayMs and then
// dead-letters them back onto the main queue.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		if err := declare(ch, name, nil); err != nil {
			return err
		}
		if err := declare(ch, name+"_dlq", nil); err != nil {
			return err
		}
		retryArgs := amqp091.Table{
			"x-message-ttl":             int32(retryDelayMs),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		}
		if err := declare(ch, name+"_retry", retryArgs); err != nil {
			return err
		}
	}
	return nil
}

func declare(ch *amqp091.Channel, name string, args amqp091.Table) error {
	_, err := ch.QueueDeclare(name, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// PublishFIFO publishes a persistent message straight onto the named
// queue through the default exchange.
func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	if err := declare(ch, queueName, nil); err != nil {
		return err
	}
	return ch.Publish("", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}
