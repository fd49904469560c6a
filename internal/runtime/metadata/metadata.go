// Package metadata names the message headers the matcher reads and writes.
package metadata

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

const (
	KeyFilterID   = "protomatch_filter_id"
	KeyEntityType = "protomatch_entity_type"
	KeySourceUUID = "protomatch_source_uuid"
	KeyHandler    = "protomatch_handler"
)

// Metadata is a detached copy of message headers.
type Metadata map[string]string

// Clone returns a shallow copy; a nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	cloned := make(Metadata, len(m))
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// With returns a copy holding key=value in addition to m's entries.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.Clone()
	cloned[key] = value
	return cloned
}

// Notification builds the headers of the notification published for one
// matched filter. The source correlation id is carried over.
func Notification(source *message.Message, handler, filterID, entityType string) message.Metadata {
	md := message.Metadata{
		KeyFilterID:   filterID,
		KeyEntityType: entityType,
		KeySourceUUID: source.UUID,
		KeyHandler:    handler,
	}
	if id := middleware.MessageCorrelationID(source); id != "" {
		md.Set(middleware.CorrelationIDMetadataKey, id)
	}
	return md
}
