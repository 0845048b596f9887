package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/prepit/audioproc/internal/config"
)

type Client struct {
	client *asynq.Client
	queue  config.QueueConfig
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(redisCfg config.RedisConfig, queueCfg config.QueueConfig) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(redisCfg)),
		queue:  queueCfg,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueAudioProcess schedules one recording and returns the task id.
func (c *Client) EnqueueAudioProcess(ctx context.Context, payload AudioProcessPayload) (string, error) {
	return c.enqueue(ctx, TypeAudioProcess, payload,
		asynq.Queue(c.queue.Name),
		asynq.MaxRetry(c.queue.MaxRetry),
		asynq.Timeout(c.queue.Timeout),
	)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return info.ID, nil
}
