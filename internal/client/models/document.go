package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Document is the storage envelope of a record: the keys the store indexes
// plus a JSON snapshot of the record itself.
type Document struct {
	Collection Collection
	ID         string
	OwnerID    string
	ShareCode  string
	Body       json.RawMessage
	UpdatedAt  time.Time
}

// NewDocument snapshots r. The body is a value copy: later edits to r do not
// change the document.
func NewDocument(r Record) (*Document, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s/%s: %w", r.RecordCollection(), r.RecordID(), err)
	}

	d := &Document{
		Collection: r.RecordCollection(),
		ID:         r.RecordID(),
		OwnerID:    r.RecordOwnerID(),
		Body:       body,
	}
	if sc, ok := r.(ShareCoded); ok {
		d.ShareCode = sc.RecordShareCode()
	}
	return d, nil
}

// Decode unmarshals the body into v.
func (d *Document) Decode(v any) error {
	if err := json.Unmarshal(d.Body, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
