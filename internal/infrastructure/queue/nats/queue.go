package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/infrastructure/resilience"
)

const (
	headerMessageKey = "X-Message-Key"
	headerRecipient  = "X-Recipient"
)

// Bus carries notification intents from the API to the notification worker.
type Bus struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	executor   *resilience.Executor
}

type Options struct {
	ClientName           string
	QueueGroup           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Bus, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Bus, error) {
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
	clientName := options.ClientName
	if clientName == "" {
		clientName = "document-approval"
	}
	queueGroup := options.QueueGroup
	if queueGroup == "" {
		queueGroup = "notifiers"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:       conn,
		subject:    subject,
		queueGroup: queueGroup,
		executor:   options.ResilienceExecutor,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// Healthy reports whether the connection is usable.
func (b *Bus) Healthy() bool {
	return b.conn != nil && b.conn.IsConnected()
}

func (b *Bus) PublishNotification(ctx context.Context, intent domain.NotificationIntent) error {
	msg, err := encodeIntent(b.subject, intent)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := b.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(b.subject, err)
	}
	return nil
}

// SubscribeNotifications blocks until ctx is done, then drains in-flight messages.
func (b *Bus) SubscribeNotifications(ctx context.Context, handler func(context.Context, domain.NotificationIntent) error) error {
	sub, err := b.conn.QueueSubscribe(b.subject, b.queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		intent, err := decodeIntent(msg)
		if err != nil {
			slog.Error("notification_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, intent); err != nil {
			slog.Error("notification_handler_failed",
				"user_id", intent.UserID,
				"message_key", intent.MessageKey,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeIntent(subject string, intent domain.NotificationIntent) (*nats.Msg, error) {
	payload, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("marshal notification intent: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Header.Set(headerMessageKey, intent.MessageKey)
	msg.Header.Set(headerRecipient, intent.UserID)
	return msg, nil
}

func decodeIntent(msg *nats.Msg) (domain.NotificationIntent, error) {
	var intent domain.NotificationIntent
	if err := json.Unmarshal(msg.Data, &intent); err != nil {
		return domain.NotificationIntent{}, fmt.Errorf("unmarshal notification intent: %w", err)
	}
	if intent.UserID == "" || intent.MessageKey == "" {
		return domain.NotificationIntent{}, fmt.Errorf("notification intent missing recipient or message key")
	}
	return intent, nil
}
