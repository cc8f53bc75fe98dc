package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goroutine"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer eventlog.Consumer,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.progress.consumer_names")
	concurrency := cfg.GetInt("modules.progress.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = 4
	}

	consumers := []struct {
		name    string
		topic   string
		handler eventlog.Handler
	}{
		{name: event.TopicMaterialProgressRecorded, topic: event.TopicMaterialProgressRecorded, handler: h.MaterialProgressRecorded},
	}

	for _, c := range consumers {
		if !slices.Contains(enabled, c.name) {
			continue
		}
		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "running event log consumer", "consumer", c.name, "group", event.GroupProgress)
			return consumer.Consume(pCtx, c.topic, c.handler,
				eventlog.WithGroup(event.GroupProgress),
				eventlog.WithConcurrency(concurrency),
				eventlog.WithMaxInFlight(concurrency*2),
			)
		})
	}
}
