package nats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
)

type mockMsg struct {
	mock.Mock
}

func (m *mockMsg) Subject() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockMsg) Data() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockMsg) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockMsg) Nak() error {
	args := m.Called()
	return args.Error(0)
}

func Test_handleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	testCases := []struct {
		name       string
		handler    Handler
		newMockMsg func() *mockMsg
	}{
		{
			name:    "handled message is acked",
			handler: func(context.Context, Message) error { return nil },
			newMockMsg: func() *mockMsg {
				msg := new(mockMsg)
				msg.On("Ack").Return(nil).Once()
				return msg
			},
		},
		{
			name:    "failed message is nacked",
			handler: func(context.Context, Message) error { return errors.New("boom") },
			newMockMsg: func() *mockMsg {
				msg := new(mockMsg)
				msg.On("Subject").Return("inventory.stock.changed")
				msg.On("Nak").Return(nil).Once()
				return msg
			},
		},
		{
			name:    "ack failure is only logged",
			handler: func(context.Context, Message) error { return nil },
			newMockMsg: func() *mockMsg {
				msg := new(mockMsg)
				msg.On("Ack").Return(errors.New("connection closed")).Once()
				return msg
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			msg := tc.newMockMsg()

			// when
			handleMessage(context.Background(), msg, tc.handler, logger)

			// then
			msg.AssertExpectations(t)
		})
	}
}
