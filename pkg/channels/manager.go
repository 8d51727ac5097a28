// Package channels implements the thin per-service-channel dispatchers:
// gamepad input, media transport control, and system text entry. Each
// manager subscribes to the engine's message stream, filters by its bound
// channel, and publishes typed events.
package channels

import (
	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/session"
)

// manager is the shared base: channel filtering over the engine's message
// and JSON streams.
type manager struct {
	engine  *session.Engine
	channel session.ServiceChannel
	log     logging.LeveledLogger
}

func newManager(engine *session.Engine, channel session.ServiceChannel,
	loggerFactory logging.LoggerFactory, name string,
	onMessage func(*packet.Message), onJSON func(string)) manager {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	m := manager{
		engine:  engine,
		channel: channel,
		log:     loggerFactory.NewLogger(name),
	}
	if onMessage != nil {
		engine.OnMessage.Subscribe(func(in session.InboundMessage) {
			if in.Channel == m.channel {
				onMessage(in.Message)
			}
		})
	}
	if onJSON != nil {
		engine.OnJSON.Subscribe(func(in session.InboundJSON) {
			if in.Channel == m.channel {
				onJSON(in.Text)
			}
		})
	}
	return m
}
