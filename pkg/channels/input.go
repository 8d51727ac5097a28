package channels

import (
	"context"
	"time"

	"github.com/pion/logging"

	"github.com/openxbox/smartglass/pkg/packet"
	"github.com/openxbox/smartglass/pkg/session"
)

// InputManager drives the SystemInput channel: gamepad button and stick
// reports. The console expects a Clear report shortly after each press to
// release the buttons; SendButtons handles that.
type InputManager struct {
	manager
}

// NewInputManager creates the input dispatcher bound to SystemInput.
func NewInputManager(engine *session.Engine, loggerFactory logging.LoggerFactory) *InputManager {
	m := &InputManager{}
	m.manager = newManager(engine, session.ServiceChannelSystemInput,
		loggerFactory, "input", m.onMessage, nil)
	return m
}

func (m *InputManager) onMessage(msg *packet.Message) {
	// The console never sends on SystemInput.
	m.log.Warnf("%v: %v", ErrUnexpectedMessage, msg.Header.Type)
}

// Gamepad sends one gamepad report stamped with the current time.
func (m *InputManager) Gamepad(ctx context.Context, buttons packet.GamepadButton,
	leftTrigger, rightTrigger, leftX, leftY, rightX, rightY float32) error {
	report := &packet.Gamepad{
		Timestamp:        uint64(time.Now().Unix()),
		Buttons:          buttons,
		LeftTrigger:      leftTrigger,
		RightTrigger:     rightTrigger,
		LeftThumbstickX:  leftX,
		LeftThumbstickY:  leftY,
		RightThumbstickX: rightX,
		RightThumbstickY: rightY,
	}
	_, err := m.engine.SendMessage(ctx, report, m.channel, session.SendOptions{})
	return err
}

// SendButtons presses buttons and releases them after the given hold
// duration by sending a Clear report.
func (m *InputManager) SendButtons(ctx context.Context, buttons packet.GamepadButton,
	hold time.Duration) error {
	if err := m.Gamepad(ctx, buttons, 0, 0, 0, 0, 0, 0); err != nil {
		return err
	}
	select {
	case <-time.After(hold):
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.Gamepad(ctx, packet.GamepadButtonClear, 0, 0, 0, 0, 0, 0)
}
