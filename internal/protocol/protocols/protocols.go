// Package protocols resolves protocol strategies by name, frame id or
// HTTP content type.
package protocols

import (
	"fmt"
	"mime"
	"strings"

	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/binary"
	"github.com/danmuck/nslisting/internal/protocol/compact"
)

var all = []protocol.Factory{
	binary.Factory{},
	compact.Factory{},
}

// Default is the strategy used when none is configured.
func Default() protocol.Factory {
	return binary.Factory{}
}

// All returns every registered strategy in id order.
func All() []protocol.Factory {
	out := make([]protocol.Factory, len(all))
	copy(out, all)
	return out
}

func Names() []string {
	names := make([]string, 0, len(all))
	for _, f := range all {
		names = append(names, f.Name())
	}
	return names
}

func Lookup(name string) (protocol.Factory, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default(), nil
	}
	for _, f := range all {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", protocol.ErrUnknownProtocol, name)
}

func LookupID(id uint32) (protocol.Factory, error) {
	for _, f := range all {
		if f.ID() == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: id=%d", protocol.ErrUnknownProtocol, id)
}

// ForContentType matches a Content-Type or a single Accept entry.
func ForContentType(contentType string) (protocol.Factory, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	for _, f := range all {
		if f.ContentType() == mediaType {
			return f, true
		}
	}
	return nil, false
}
