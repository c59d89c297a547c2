package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"repairhub/internal/config"
	"repairhub/internal/domain"
)

// LogNotifier пишет событие в журнал; используется, когда redis выключен
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) Notify(_ context.Context, ev domain.CaseEvent) error {
	n.log.Info("case event",
		zap.String("case_id", ev.CaseID),
		zap.String("reference_code", ev.ReferenceCode),
		zap.String("kind", string(ev.Kind)),
		zap.String("owner_id", ev.OwnerID),
		zap.String("status", string(ev.Status)),
		zap.Time("at", ev.At),
	)
	return nil
}

// RedisNotifier публикует событие в канал redis (JSON)
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// NewRedisClient создаёт клиента и проверяет соединение
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, ev domain.CaseEvent) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal case event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish case event: %w", err)
	}
	return nil
}

// Subscribe подписка на канал событий (для потребителей и тестов)
func (n *RedisNotifier) Subscribe(ctx context.Context) *redis.PubSub {
	return n.client.Subscribe(ctx, n.channel)
}

type notifier interface {
	Notify(ctx context.Context, ev domain.CaseEvent) error
}

// Multi рассылает событие всем получателям и собирает их ошибки
type Multi []notifier

func (m Multi) Notify(ctx context.Context, ev domain.CaseEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
