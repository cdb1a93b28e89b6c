package events

import (
	"encoding/json"

	svcerror "food-order-loadtest/pkg/error"

	"go.uber.org/zap"
)

type TypedHandler func(raw []byte) error

type Dispatcher struct {
	Handlers map[EventType]TypedHandler
	log      *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Handlers: make(map[EventType]TypedHandler),
		log:      logger.Named("dispatcher"),
	}
}

func Register[T DomainEvent](d *Dispatcher, et EventType, handler func(T) error) {
	d.Handlers[et] = func(raw []byte) error {
		var evt T
		if err := json.Unmarshal(raw, &evt); err != nil {
			return svcerror.New(
				svcerror.ErrDecodeError,
				svcerror.WithOp("Dispatcher.Handle"),
				svcerror.WithMsg("failed to unmarshal "+string(et)),
				svcerror.WithCause(err),
			)
		}
		return handler(evt)
	}
	d.log.Debug("registered handler", zap.String("type", string(et)))
}

type EventEnvelope struct {
	Metadata Metadata `json:"mtdt"`
}

// Dispatch routes raw by its metadata type. Unknown types are skipped.
func (d *Dispatcher) Dispatch(raw []byte) error {
	var env EventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return svcerror.New(
			svcerror.ErrDecodeError,
			svcerror.WithOp("Dispatcher.Dispatch"),
			svcerror.WithMsg("message is not an event envelope"),
			svcerror.WithCause(err),
		)
	}

	handler, ok := d.Handlers[env.Metadata.Type]
	if !ok {
		d.log.Debug("no handler", zap.String("type", string(env.Metadata.Type)))
		return nil
	}

	d.log.Debug("handling",
		zap.String("run", env.Metadata.RunId),
		zap.String("type", string(env.Metadata.Type)),
		zap.String("producer", env.Metadata.Producer),
	)
	return handler(raw)
}
