package consumer

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"restaurant-service/internal/config"
	"restaurant-service/internal/service"
)

// Consumer listens for order events and drops the cached ingredient listing,
// since every confirmed or cancelled order moves stock. The authoritative
// stock change already happened inside the order transaction.
type Consumer struct {
	rdb *redis.Client
}

func NewConsumer(rdb *redis.Client) *Consumer {
	return &Consumer{rdb: rdb}
}

// StartKafkaConsumer blocks reading the order topic; run it in a goroutine.
func (c *Consumer) StartKafkaConsumer() {
	orderReader := config.NewKafkaReader("order-topic", "catalog-cache-group")

	for {
		ctx := context.Background()
		msg, err := orderReader.ReadMessage(ctx)
		if err != nil {
			log.Error().Msgf("Error reading message: %v", err)
			continue
		}

		if err := c.rdb.Del(ctx, service.IngredientCacheKey).Err(); err != nil {
			log.Error().Msgf("Error invalidating ingredient cache: %v", err)
			continue
		}

		log.Info().Msgf("Ingredient cache invalidated after event %s", string(msg.Key))
	}
}
