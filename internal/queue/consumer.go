package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer drains the events queue and appends one line per message to
// a log file (logs/mercadillo.log by default).
type AuditConsumer struct {
    URL   string
    Queue string
    Path  string
    Log   *slog.Logger
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  Broken messages are rejected without requeue so a poison
// message cannot spin the loop.
func (c *AuditConsumer) Run(ctx context.Context) error {
    log := c.Log
    if log == nil {
        log = slog.Default()
    }
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.Warn("audit-consumer: dial failed", "error", err, "retry_in", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("audit-consumer: consume loop ended, reconnecting", "error", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection, log *slog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("audit-consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(d.Body); err != nil {
                log.Warn("audit-consumer: handle message failed", "error", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *AuditConsumer) handle(body []byte) error {
    line, err := FormatAuditLine(body)
    if err != nil {
        return err
    }
    path := c.Path
    if path == "" {
        path = filepath.Join("logs", "mercadillo.log")
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatAuditLine renders a queue message as a single newline-terminated
// log line.
func FormatAuditLine(body []byte) (string, error) {
    var env envelope
    if err := json.Unmarshal(body, &env); err != nil {
        return "", fmt.Errorf("unmarshal: %w", err)
    }
    switch env.Type {
    case TypeStateChanged:
        var ev StateChangedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        return fmt.Sprintf("[%s] State changed | mercadillo_id=%s | user_id=%d | name=%q | date=%s | %s -> %s | trigger=%s\n",
            ev.ChangedAt, ev.MercadilloID, ev.UserID, ev.Name, ev.Date, ev.From, ev.To, ev.Trigger), nil
    case TypeSyncCompleted:
        var ev SyncCompletedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        return fmt.Sprintf("[%s] Sync completed | user_id=%d | pushed=%d | pulled=%d | errors=%d | attempts=%d\n",
            ev.CompletedAt, ev.UserID, ev.Pushed, ev.Pulled, ev.Errors, ev.Attempts), nil
    }
    return "", fmt.Errorf("unknown event type %q", env.Type)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
