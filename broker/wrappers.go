package broker

import (
	"context"

	"istock.com/dto"
)

func SendSyncFinished(ctx context.Context, evt *dto.SyncFinishedEvent) error {
	return sendReliable(ctx, TopicSyncFinished, evt)
}

type SourceHealthEvent struct {
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	HealthScore float64 `json:"health_score"`
}

func SendSourceHealth(ctx context.Context, evt *SourceHealthEvent) error {
	return sendReliable(ctx, TopicSourceHealth, evt)
}
