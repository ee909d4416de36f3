package ir

import (
	"strconv"

	"github.com/roach88/scenecore/internal/field"
)

// NOTE: These are trace records written by the engine's observer and read
// back by the store. They are not part of the declaration IR.

// Cascade is the wavefront of deliveries caused by one top-level stimulus.
type Cascade struct {
	Token     string  `json:"token"`
	Origin    string  `json:"origin"` // "A.set_x" or "A.x_changed"
	Timestamp float64 `json:"timestamp"`
	Seq       int64   `json:"seq"` // logical clock at cascade start
}

// Delivery is one event delivered along a route (or sent directly, in which
// case the source fields are empty).
type Delivery struct {
	ID           string       `json:"id"` // content-addressed
	CascadeToken string       `json:"cascade_token"`
	Seq          int64        `json:"seq"`
	Timestamp    float64      `json:"timestamp"`
	Depth        int          `json:"depth"`
	SrcNode      field.NodeID `json:"src_node,omitempty"`
	SrcName      string       `json:"src_name,omitempty"`
	SrcEvent     string       `json:"src_event,omitempty"`
	DstNode      field.NodeID `json:"dst_node"`
	DstName      string       `json:"dst_name,omitempty"`
	DstEvent     string       `json:"dst_event"`
	Value        field.Value  `json:"-"`
}

// Source renders the sending endpoint, or "" for a direct send.
func (d Delivery) Source() string {
	if d.SrcEvent == "" {
		return ""
	}
	return endpoint(d.SrcName, d.SrcNode, d.SrcEvent)
}

// Target renders the receiving endpoint.
func (d Delivery) Target() string {
	return endpoint(d.DstName, d.DstNode, d.DstEvent)
}

func endpoint(name string, id field.NodeID, event string) string {
	if name == "" {
		name = "#" + strconv.FormatUint(uint64(id), 10)
	}
	return name + "." + event
}
