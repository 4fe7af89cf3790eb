package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/queue"
	"github.com/chenraccah/semantic-network-analyzer/internal/storage"
	"github.com/chenraccah/semantic-network-analyzer/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"
	oai "github.com/chenraccah/semantic-network-analyzer/pkg/ai/ollama"
	gai "github.com/chenraccah/semantic-network-analyzer/pkg/ai/openai"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger/console"
	"github.com/chenraccah/semantic-network-analyzer/pkg/similarity"
	pgxstore "github.com/chenraccah/semantic-network-analyzer/pkg/store/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

const (
	recoverInterval = 10 * time.Minute
	sweepInterval   = time.Hour
	maxDeliveries   = 10
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client := storage.NewS3Client(ctx)

	// Model client for semantic augmentation
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.Client

	switch adapter {
	case "ollama":
		c, err := oai.NewClient(oai.NewClientParams{
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = c
	default:
		if util.GetEnv("AI_CHAT_KEY") != "" || util.GetEnv("AI_EMBED_KEY") != "" {
			aiClient = gai.NewClient(gai.NewClientParams{
				ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
				EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

				EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
				EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
				ChatURL:      util.GetEnv("AI_CHAT_URL"),
				ChatKey:      util.GetEnv("AI_CHAT_KEY"),
			})
		}
	}

	// Init pgx client
	pgCfg, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to parse database url", "err", err)
	}
	pgCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pgConn, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	st := pgxstore.NewDBStorageWithConnection(pgConn)

	// Semantic edges are optional; a queued job that asks for them without
	// a model client fails and records why.
	var provider analysis.SimilarityProvider
	if aiClient != nil {
		provider = similarity.NewProvider(similarity.NewProviderParams{
			Embedder: aiClient,
			Cache:    st,
			Model:    util.GetEnv("AI_EMBED_MODEL"),
		})
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := queue.Queues()
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// Requeue jobs lost to dead workers
	go every(ctx, recoverInterval, func() {
		if err := queue.RecoverStaleAnalyses(ctx, ch, st); err != nil {
			logger.Error("Stale analysis recovery failed", "err", err)
		}
	})

	// Sweep analyses past their retention expiry
	go every(ctx, sweepInterval, func() {
		_, err := queue.SweepExpiredAnalyses(ctx, st, func(ctx context.Context, keys []string) {
			storage.DeleteFiles(ctx, client, keys)
		})
		if err != nil {
			logger.Error("Retention sweep failed", "err", err)
		}
	})

	logger.Info("Listening for messages")

	// One consumer channel with prefetch 1 so a single job is in flight
	// across all queues at any time.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	deliveries := consumeAll(ctx, consumerCh, queues)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case d := <-deliveries:
				started := time.Now()
				logger.Info("Received message", "queue", d.queue)

				var procErr error
				switch d.queue {
				case queue.AnalyzeQueue:
					procErr = queue.ProcessAnalysisJob(ctx, client, provider, st, pgConn, string(d.msg.Body))
				}

				if procErr != nil {
					logger.Error("Error processing message", "queue", d.queue, "err", procErr)
					redeliver(consumerCh, d.msg, d.queue)
				} else if err := d.msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				} else {
					logger.Info("Message processed successfully", "queue", d.queue)
				}

				if aiClient != nil {
					m := aiClient.GetMetrics()
					logger.Info(
						"Model usage",
						"input_tokens", m.InputTokens,
						"output_tokens", m.OutputTokens,
						"total_tokens", m.TotalTokens,
						"duration", hms(time.Duration(m.DurationMs)*time.Millisecond),
					)
					aiClient.ResetMetrics()
				}

				logger.Info("Processing time", "duration", hms(time.Since(started)))
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

// every runs fn immediately and then once per interval until ctx ends.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		fn()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// hms renders a duration as HH:MM:SS for processing summaries.
func hms(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

type delivery struct {
	msg   amqp.Delivery
	queue string
}

// consumeAll fans every queue's deliveries into one channel so the
// processing goroutine handles jobs strictly one at a time.
func consumeAll(ctx context.Context, ch *amqp.Channel, queues []string) <-chan delivery {
	out := make(chan delivery)
	for _, name := range queues {
		go func(name string) {
			msgs, err := ch.Consume(name, name+"_consumer", false, false, false, false, nil)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", name, "err", err)
			}
			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", name)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", name)
						return
					}
					out <- delivery{msg: msg, queue: name}
				}
			}
		}(name)
	}
	return out
}

// redeliver routes a failed message to its retry queue, or to the DLQ once
// it has been attempted maxDeliveries times. The retry queue's TTL returns
// it to the main queue after a pause.
func redeliver(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	retries, _ := headers["x-retries"].(int32)

	target := queueName + "_retry"
	if int(retries) >= maxDeliveries {
		target = queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", target)
	} else {
		headers["x-retries"] = retries + 1
	}

	err := ch.Publish("", target, false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        msg.Body,
		Headers:     headers,
	})
	if err != nil {
		logger.Error("Failed to requeue message", "queue", target, "err", err)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
