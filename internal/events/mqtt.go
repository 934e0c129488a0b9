package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessagePublisher is the subset of the mqtt client used here.
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher publishes events to <prefix>/<tenant_id>/conversations.
type MQTTPublisher struct {
	client MessagePublisher
	prefix string
	qos    byte
}

func NewMQTTPublisher(client MessagePublisher, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos}
}

// Topic returns the topic for a tenant.
func (p *MQTTPublisher) Topic(tenantID string) string {
	return fmt.Sprintf("%s/%s/conversations", p.prefix, tenantID)
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.client.Publish(p.Topic(e.TenantID), p.qos, false, payload)
}
