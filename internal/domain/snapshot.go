package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot is the `datastore-contents` tree of one YANG push notification.
// Keys are module-qualified (`module:node`); any subtree may be absent.
type Snapshot map[string]any

var envelopePath = []string{
	"ietf-restconf:notification",
	"ietf-yang-push:push-update",
	"datastore-contents",
}

// ParseNotification decodes an event payload and returns its datastore snapshot.
// Numbers keep their literal text so that values are relayed exactly as the device sent them.
func ParseNotification(payload []byte) (Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	node := root
	for i, key := range envelopePath {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, &SnapshotShapeError{Path: joinPath(envelopePath[:i]), Reason: "not an object"}
		}
		node, ok = obj[key]
		if !ok {
			return nil, &SnapshotShapeError{Path: joinPath(envelopePath[:i+1]), Reason: "missing"}
		}
	}
	ds, ok := node.(map[string]any)
	if !ok {
		return nil, &SnapshotShapeError{Path: joinPath(envelopePath), Reason: "not an object"}
	}
	return Snapshot(ds), nil
}

func joinPath(parts []string) string {
	var b bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(p)
	}
	return b.String()
}
