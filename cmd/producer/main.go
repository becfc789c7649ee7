package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"go-rabbit/internal/config"
	pkg "go-rabbit/pkg/rabbit"
)

func main() {
	cfg := config.Load()

	payload := map[string]interface{}{
		"event_type":  "order_created",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"order_id":    "ORD-2025-001234",
		"customer_id": "CUST-567890",
		"items": []interface{}{
			map[string]interface{}{
				"product_id": "PROD-111",
				"name":       "iPhone 15 Pro",
				"quantity":   1,
				"price":      42900.00,
			},
			map[string]interface{}{
				"product_id": "PROD-222",
				"name":       "AirPods Pro",
				"quantity":   2,
				"price":      8990.00,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatal(err)
	}

	client, err := pkg.Open(pkg.ClientConfig{URL: cfg.Rabbit.URL})
	if err != nil {
		log.Fatal(err)
	}
	defer client.CloseGracefully(5 * time.Second)

	ch, err := client.Channel()
	if err != nil {
		log.Fatal(err)
	}
	if err := pkg.DeclareTopology(ch, pkg.Topology{
		Exchange:     cfg.Rabbit.Exchange,
		ExchangeType: cfg.Rabbit.ExchangeType,
		Queue:        cfg.Rabbit.Queue,
		RoutingKey:   cfg.Rabbit.RoutingKey,
	}); err != nil {
		log.Fatal(err)
	}

	publisher, err := pkg.NewPublisher(ch, pkg.PublisherConfig{})
	if err != nil {
		log.Fatal(err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := publisher.PublishWithRetry(ctx, cfg.Rabbit.Exchange, cfg.Rabbit.RoutingKey, pub, pkg.DefaultRetryPolicy()); err != nil {
		log.Println(err.Error())
		return
	}
	log.Println("Send message to rabbitmq success.")
}
