package bus

import (
	"testing"
	"time"

	"github.com/arloliu/go-espwifi/logger"
	"github.com/stretchr/testify/assert"
)

func TestWaitReady_LogsTimeout(t *testing.T) {
	log := logger.NewMockLogger()
	log.On("Debug", "bus: timeout waiting for ready line", []any{"timeout", 2 * time.Millisecond}).Once()

	rig := newTestRig(t, WithLogger(log))

	assert.False(t, rig.tr.WaitReady(2*time.Millisecond))
	log.AssertExpectations(t)
}

func TestExchange_LogsTransferFailure(t *testing.T) {
	log := logger.NewMockLogger()
	log.On("Debug", "bus: transfer failed", []any{"len", 4, "error", errInjected}).Once()

	rig := newTestRig(t, WithLogger(log))
	rig.spi.err = errInjected

	err := rig.tr.Transaction(func() error {
		_, err := rig.tr.Exchange([]byte{1, 2, 3, 4})
		return err
	})
	assert.ErrorIs(t, err, errInjected)
	log.AssertExpectations(t)
}
