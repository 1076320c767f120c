package model

import "fmt"

// Burst is one maximal run of traffic on a single flow, closed after the
// flow stayed silent for the configured inactivity window. Records are
// immutable once emitted.
type Burst struct {
	// CompletionTime is the engine clock at the moment the burst was closed,
	// at least one inactivity window past End.
	CompletionTime float64 `json:"completion_time" bson:"completion_time"`
	Src            string  `json:"src" bson:"src"`
	Dst            string  `json:"dst" bson:"dst"`
	// SrcPort and DstPort are nil for wireless flows and for wired flows
	// tracked without port awareness.
	SrcPort    *uint16 `json:"src_port,omitempty" bson:"src_port,omitempty"`
	DstPort    *uint16 `json:"dst_port,omitempty" bson:"dst_port,omitempty"`
	Start      float64 `json:"start" bson:"start"`
	End        float64 `json:"end" bson:"end"`
	NumPackets uint16  `json:"num_packets" bson:"num_packets"`
	Size       uint32  `json:"size" bson:"size"`
}

// Duration returns the time between the first and the last packet of the
// burst. A single-packet burst has duration zero.
func (b Burst) Duration() float64 {
	return b.End - b.Start
}

// SrcEndpoint renders the source with its port when one is present.
func (b Burst) SrcEndpoint() string {
	return endpointString(b.Src, b.SrcPort)
}

// DstEndpoint renders the destination with its port when one is present.
func (b Burst) DstEndpoint() string {
	return endpointString(b.Dst, b.DstPort)
}

func endpointString(addr string, port *uint16) string {
	if port == nil {
		return addr
	}
	return fmt.Sprintf("%s:%d", addr, *port)
}
