// Command catalog-change publishes one entity-change event to the catalog
// exchange, the same event the catalog emits on writes.  Operators use it
// to force cache invalidation after manual database edits:
//
//	catalog-change -entity delivery_zone -id z1
//	catalog-change -entity product -action deleted -id p42
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/iliyamo/localmarket/internal/cache"
	"github.com/iliyamo/localmarket/internal/config"
	"github.com/iliyamo/localmarket/internal/logging"
	"github.com/iliyamo/localmarket/internal/model"
	"github.com/iliyamo/localmarket/internal/queue"
)

func main() {
	_ = godotenv.Load()

	// Only the queue section is needed, so the server's required DB and auth
	// variables are not demanded here.
	var qc config.QueueConfig
	if err := envconfig.Process("", &qc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	entity := flag.String("entity", "", "product, market_stand, farm, delivery_zone or user")
	id := flag.String("id", "", "entity id")
	action := flag.String("action", queue.ActionUpdated, "created, updated or deleted")
	url := flag.String("url", qc.URL, "RabbitMQ URL")
	exchange := flag.String("exchange", qc.Exchange, "topic exchange")
	timeout := flag.Duration("timeout", 5*time.Second, "publish timeout")
	flag.Parse()

	log := logging.Setup("catalog-change", "info", true)

	change := model.EntityChange{
		Entity:     strings.ToLower(strings.TrimSpace(*entity)),
		ID:         strings.TrimSpace(*id),
		Action:     strings.ToLower(*action),
		OccurredAt: time.Now().UTC(),
	}
	if _, ok := cache.PatternsFor(change.Entity, change.ID); !ok {
		flag.Usage()
		log.Fatal().Str("entity", change.Entity).Msg("unknown entity or missing id")
	}
	switch change.Action {
	case queue.ActionCreated, queue.ActionUpdated, queue.ActionDeleted:
	default:
		log.Fatal().Str("action", change.Action).Msg("unknown action")
	}

	pub, err := queue.NewPublisher(*url, *exchange)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := pub.Publish(ctx, change); err != nil {
		_ = pub.Close()
		log.Fatal().Err(err).Msg("publish")
	}
	log.Info().
		Str("routing_key", queue.RoutingKey(change)).
		Str("exchange", *exchange).
		Msg("entity change published")
}
