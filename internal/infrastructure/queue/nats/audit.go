package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avoronov/bookqa/internal/core/domain"
	"github.com/avoronov/bookqa/internal/core/ports"
	"github.com/avoronov/bookqa/internal/infrastructure/resilience"
)

// AuditQueue carries audit events (answered queries and remote log records)
// from the API process to the worker that persists them.
type AuditQueue struct {
	conn         *nats.Conn
	querySubject string
	logSubject   string
	executor     *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, querySubject, logSubject string) (*AuditQueue, error) {
	return NewWithOptions(url, querySubject, logSubject, Options{})
}

func NewWithOptions(url, querySubject, logSubject string, options Options) (*AuditQueue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("bookqa"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &AuditQueue{
		conn:         conn,
		querySubject: querySubject,
		logSubject:   logSubject,
		executor:     options.ResilienceExecutor,
	}, nil
}

func (q *AuditQueue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *AuditQueue) PublishQueryRecord(ctx context.Context, record domain.QueryRecord) error {
	return q.publish(ctx, q.querySubject, record)
}

func (q *AuditQueue) PublishLogRecord(ctx context.Context, record domain.LogRecord) error {
	return q.publish(ctx, q.logSubject, record)
}

func (q *AuditQueue) publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeAudit drains both audit subjects into the store until ctx is
// cancelled. Handler failures are logged and the event is dropped; audit
// persistence is best-effort by design.
func (q *AuditQueue) SubscribeAudit(ctx context.Context, store ports.AuditStore) error {
	querySub, err := q.conn.QueueSubscribe(q.querySubject, "audit-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		var record domain.QueryRecord
		if err := json.Unmarshal(msg.Data, &record); err != nil {
			log.Printf("decode query record: %v", err)
			return
		}
		if err := store.InsertQueryRecord(ctx, record); err != nil {
			log.Printf("persist query record for file_id=%s: %v", record.FileID, err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", q.querySubject, err)
	}

	logSub, err := q.conn.QueueSubscribe(q.logSubject, "audit-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		var record domain.LogRecord
		if err := json.Unmarshal(msg.Data, &record); err != nil {
			log.Printf("decode log record: %v", err)
			return
		}
		if err := store.InsertLogRecord(ctx, record); err != nil {
			log.Printf("persist log record %s: %v", record.ID, err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", q.logSubject, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := querySub.Drain(); err != nil {
		return fmt.Errorf("nats drain query subscription: %w", err)
	}
	if err := logSub.Drain(); err != nil {
		return fmt.Errorf("nats drain log subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
