package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"go-rabbit/internal/config"
	"go-rabbit/internal/observability"
	"go-rabbit/internal/rabbit"
	"go-rabbit/internal/service"
	pkg "go-rabbit/pkg/rabbit"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.Logging.Level)
	fmt.Println("🚀 Starting RabbitMQ Consumer... ", cfg.Rabbit.Queue)

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	client, err := pkg.Open(pkg.ClientConfig{URL: cfg.Rabbit.URL})
	if err != nil {
		log.Fatal(err)
	}
	defer client.CloseGracefully(5 * time.Second)

	setupCh, err := client.Channel()
	if err != nil {
		log.Fatal(err)
	}
	if err := pkg.DeclareTopology(setupCh, pkg.Topology{
		Exchange:     cfg.Rabbit.Exchange,
		ExchangeType: cfg.Rabbit.ExchangeType,
		Queue:        cfg.Rabbit.Queue,
		RoutingKey:   cfg.Rabbit.RoutingKey,
		DeadLetter: pkg.DeadLetterTopology{
			Exchange:   cfg.Poison.DeadLetterExchange,
			Queue:      cfg.Poison.DeadLetterQueue,
			RoutingKey: cfg.Poison.DeadLetterRoutingKey,
			Declare:    cfg.Poison.DeadLetterDeclare,
		},
	}); err != nil {
		log.Fatal(err)
	}
	setupCh.Close()

	// Separate channels for consuming and publishing; a confirm-mode
	// publisher channel must not carry consumer traffic.
	consumeCh, err := client.Channel()
	if err != nil {
		log.Fatal(err)
	}
	publishCh, err := client.Channel()
	if err != nil {
		log.Fatal(err)
	}
	publisher, err := pkg.NewPublisher(publishCh, pkg.PublisherConfig{})
	if err != nil {
		log.Fatal(err)
	}

	metrics := observability.NewInMemoryMetrics()
	consumer, err := rabbit.NewConsumer(rabbit.ConsumerConfig{
		Queue:          cfg.Rabbit.Queue,
		Workers:        cfg.Consumer.Workers,
		Prefetch:       cfg.Consumer.Prefetch,
		HandlerTimeout: cfg.Consumer.HandlerTimeout,
		Poison: rabbit.PoisonConfig{
			Mode:        rabbit.PoisonMode(cfg.Poison.Mode),
			MaxAttempts: cfg.Poison.MaxAttempts,
			DeadLetter: rabbit.DeadLetterDestination{
				Exchange:   cfg.Poison.DeadLetterExchange,
				RoutingKey: cfg.Poison.DeadLetterRoutingKey,
			},
		},
		Metrics: metrics,
		Logger:  zlog,
	}, consumeCh, publisher)
	if err != nil {
		log.Fatal(err)
	}

	processor := service.NewMessageProcessor()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx, processor.Process); err != nil {
		log.Printf("Consumer error: %v", err)
	}

	zlog.Info("Consumer stopped",
		zap.Any("received", metrics.GetReceived()),
		zap.Any("acked", metrics.GetAcked()),
		zap.Any("rejected", metrics.GetRejected()),
		zap.Any("republished", metrics.GetRepublished()),
		zap.Any("dead_lettered", metrics.GetDeadLettered()),
	)
}
