// Creates the topic and the subscriptions of the coverage events in a local pubsub emulator
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
)

func main() {
	projectID := flag.String("project", "projectID", "pubsub project")
	topic := flag.String("topic", "coverage-events", "topic of the coverage events")
	emulator := flag.String("emulator", "localhost:8085", "address of the pubsub emulator")
	pushEndpoint := flag.String("push-endpoint", "http://127.0.0.1:8080/push", "endpoint of the push subscription (empty: no push subscription)")
	flag.Parse()

	ctx := context.Background()
	os.Setenv("PUBSUB_EMULATOR_HOST", *emulator)

	client, err := pubsub.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("pubsub.NewClient: %v", err)
	}
	defer client.Close()

	log.Printf("Create Topic: %s", *topic)
	t, err := client.CreateTopic(ctx, *topic)
	if err != nil {
		log.Fatalf("pubsub.CreateTopic: %v", err)
	}

	log.Printf("Create Subscription: %s", *topic)
	if _, err = client.CreateSubscription(ctx, *topic, pubsub.SubscriptionConfig{
		Topic:       t,
		AckDeadline: 10 * time.Second,
	}); err != nil {
		log.Fatalf("CreateSubscription: %v", err)
	}

	if *pushEndpoint != "" {
		log.Printf("Create Subscription: %s-push", *topic)
		if _, err = client.CreateSubscription(ctx, *topic+"-push", pubsub.SubscriptionConfig{
			Topic:       t,
			AckDeadline: 10 * time.Second,
			PushConfig:  pubsub.PushConfig{Endpoint: *pushEndpoint},
		}); err != nil {
			log.Fatalf("CreateSubscription: %v", err)
		}
	}
}
