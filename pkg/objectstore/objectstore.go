// Package objectstore implements a thin in-memory external-collaborator
// contract: a key/value byte store reachable only through bus
// request/response messages, deliberately not a Parquet/Delta/B+Tree
// backend.
package objectstore

import (
	"bytes"
	"sort"
	"strings"

	"github.com/vzdtic/minispark/internal/idgen"
	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/logging"
)

// Store answers Get/Put/Delete/List/GetRange/GetSize requests against an
// in-memory map, registered as a single handler on the bus.
type Store struct {
	b        *bus.MessageBus
	log      logging.Logger
	self     bus.Endpoint
	data     map[string][]byte
	corrSeqs *idgen.Counter
}

// New constructs a Store and registers it at self on messageBus.
func New(messageBus *bus.MessageBus, self bus.Endpoint, log logging.Logger) *Store {
	s := &Store{
		b:        messageBus,
		log:      log.With(logging.Fields{"component": "objectstore", "endpoint": self.String()}),
		self:     self,
		data:     make(map[string][]byte),
		corrSeqs: idgen.NewCounter(0),
	}
	messageBus.Register(self, s.handle)
	return s
}

func (s *Store) handle(env bus.Envelope) {
	switch env.Message.Kind {
	case bus.GetObject:
		p := env.Message.Payload.(bus.GetObjectPayload)
		resp := bus.GetObjectResponsePayload{}
		if data, ok := s.data[p.Key]; ok {
			resp.Success = true
			resp.Data = append([]byte(nil), data...)
		} else {
			resp.Error = "key not found: " + p.Key
		}
		s.reply(env, bus.GetObjectResponse, resp)

	case bus.PutObject:
		p := env.Message.Payload.(bus.PutObjectPayload)
		s.data[p.Key] = append([]byte(nil), p.Data...)
		s.reply(env, bus.PutObjectResponse, bus.PutObjectResponsePayload{Success: true})

	case bus.DeleteObject:
		p := env.Message.Payload.(bus.DeleteObjectPayload)
		resp := bus.DeleteObjectResponsePayload{}
		if _, ok := s.data[p.Key]; ok {
			delete(s.data, p.Key)
			resp.Success = true
		} else {
			resp.Error = "key not found: " + p.Key
		}
		s.reply(env, bus.DeleteObjectResponse, resp)

	case bus.ListObjects:
		p := env.Message.Payload.(bus.ListObjectsPayload)
		var keys []string
		for k := range s.data {
			if strings.HasPrefix(k, p.Prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		s.reply(env, bus.ListObjectsResponse, bus.ListObjectsResponsePayload{Success: true, Keys: keys})

	case bus.GetObjectRange:
		p := env.Message.Payload.(bus.GetObjectRangePayload)
		resp := bus.GetObjectRangeResponsePayload{}
		data, ok := s.data[p.Key]
		switch {
		case !ok:
			resp.Error = "key not found: " + p.Key
		case p.Offset < 0 || p.Offset > int64(len(data)):
			resp.Error = "range out of bounds"
		default:
			end := p.Offset + p.Length
			if end > int64(len(data)) {
				end = int64(len(data))
			}
			resp.Success = true
			resp.Data = bytes.Clone(data[p.Offset:end])
		}
		s.reply(env, bus.GetObjectRangeResponse, resp)

	case bus.GetObjectSize:
		p := env.Message.Payload.(bus.GetObjectSizePayload)
		resp := bus.GetObjectSizeResponsePayload{}
		if data, ok := s.data[p.Key]; ok {
			resp.Success = true
			resp.Size = int64(len(data))
		} else {
			resp.Error = "key not found: " + p.Key
		}
		s.reply(env, bus.GetObjectSizeResponse, resp)

	default:
		s.log.With(logging.Fields{"kind": env.Message.Kind, "source": env.Source}).Warnf("unexpected message kind")
	}
}

func (s *Store) reply(env bus.Envelope, kind bus.Kind, payload interface{}) {
	correlationID := env.Message.CorrelationID
	if correlationID == "" {
		correlationID = idgen.CorrelationID(env.SequenceNo)
	}
	s.b.Send(bus.Message{
		Kind:          kind,
		CorrelationID: correlationID,
		Payload:       payload,
	}, s.self, env.Source)
}
