package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to a durable RabbitMQ queue.  Each publish opens
// its own connection; events are rare (state changes, sync runs) so this
// keeps the publisher free of reconnect state.  Errors are logged and
// returned so callers can ignore them without interrupting the request.
type Publisher struct {
    url   string
    queue string
    log   *slog.Logger
}

func NewPublisher(url, queue string, log *slog.Logger) *Publisher {
    if log == nil {
        log = slog.Default()
    }
    return &Publisher{url: url, queue: queue, log: log}
}

// PublishStateChanged sends ev with Type set to TypeStateChanged.
func (p *Publisher) PublishStateChanged(ctx context.Context, ev StateChangedEvent) error {
    ev.Type = TypeStateChanged
    return p.publish(ctx, ev)
}

// PublishSyncCompleted sends ev with Type set to TypeSyncCompleted.
func (p *Publisher) PublishSyncCompleted(ctx context.Context, ev SyncCompletedEvent) error {
    ev.Type = TypeSyncCompleted
    return p.publish(ctx, ev)
}

func (p *Publisher) publish(ctx context.Context, v any) error {
    body, err := json.Marshal(v)
    if err != nil {
        p.log.Error("rabbitmq: marshal event failed", "error", err)
        return err
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", "error", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", "error", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", "queue", p.queue, "error", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        p.log.Warn("rabbitmq: publish failed", "queue", p.queue, "error", err)
        return err
    }
    return nil
}
