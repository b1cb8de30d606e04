package domain

import "bemfa2mqtt/pkg/bemfa"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_BEMFA        = "bemfa"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type FetchDevicesRequest struct {
	ActorRequestMixIn
}

type FetchDevicesResponse struct {
	ActorResponseMixIn
	Snapshot bemfa.Snapshot
}

type SendDeviceCommandRequest struct {
	ActorRequestMixIn
	Topic   string
	Message string
}

type SendDeviceCommandResponse struct {
	ActorResponseMixIn
	Topic     string
	Message   string
	Delivered bool
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot   bemfa.Snapshot
	LastPollOK bool
}

type RefreshRequest struct {
	ActorRequestMixIn
}

type RefreshResponse struct {
	ActorResponseMixIn
}

type GetEntityDescriptorsRequest struct {
	ActorRequestMixIn
}

type GetEntityDescriptorsResponse struct {
	ActorResponseMixIn
	Descriptors EntityDescriptors
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishEntityUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  EntityUpdateEvent
}

type PublishEntityUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Descriptors EntityDescriptors
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// EntitySetChangedEvent signals that the polled device set gained, lost or
// reclassified a device, so discovery must be re-announced.
type EntitySetChangedEvent struct {
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
