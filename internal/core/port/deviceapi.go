package port

import (
	"context"

	"bemfa2mqtt/pkg/bemfa"
)

// DeviceAPI is the outbound port to the Bemfa cloud. SendCommand reports
// delivery as a boolean, the cloud gives no stronger guarantee.
type DeviceAPI interface {
	FetchDevices(ctx context.Context) (bemfa.Snapshot, error)
	SendCommand(ctx context.Context, topic string, msg string) bool
}
