package bemfa

import (
	"context"
	"sync"
)

// TestDeviceClient is an in-memory DeviceClient for tests.
type TestDeviceClient struct {
	mu        sync.Mutex
	Devices   Snapshot
	FailFetch bool
	FailSend  bool
	Sent      []TestSentCommand
}

type TestSentCommand struct {
	Topic string
	Msg   string
}

func (c *TestDeviceClient) FetchDevices(_ context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailFetch {
		return nil, updateFailed("test fetch failure", nil)
	}
	out := make(Snapshot, len(c.Devices))
	copy(out, c.Devices)
	return out, nil
}

func (c *TestDeviceClient) SendCommand(_ context.Context, topic string, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailSend {
		return false
	}
	c.Sent = append(c.Sent, TestSentCommand{Topic: topic, Msg: msg})
	return true
}

func (c *TestDeviceClient) SentCommands() []TestSentCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestSentCommand, len(c.Sent))
	copy(out, c.Sent)
	return out
}

func (c *TestDeviceClient) SetDevices(devices Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Devices = devices
}

func (c *TestDeviceClient) SetFailFetch(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FailFetch = fail
}
