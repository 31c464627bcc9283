package vkmem

// Usage describes the access pattern of a resource and selects which heap its
// memory is carved from.
type Usage uint32

const (
	// UsageFixed is for resources written once at creation and then read by
	// the device only. On discrete GPUs these are uploaded through a
	// host-visible shadow copy.
	UsageFixed Usage = iota
	// UsageDynamic is for resources rewritten by the host frequently, such
	// as per-frame uniform data.
	UsageDynamic
	// UsageHostOnly is for resources the device never samples directly,
	// such as staging and readback buffers.
	UsageHostOnly
	// UsageDeviceOnly is for resources the host never touches, such as
	// render targets.
	UsageDeviceOnly
	// UsageTransient is for frame-only attachments that can live in
	// lazily-allocated tile memory.
	UsageTransient
)

var usageMapping = map[Usage]string{
	UsageFixed:      "UsageFixed",
	UsageDynamic:    "UsageDynamic",
	UsageHostOnly:   "UsageHostOnly",
	UsageDeviceOnly: "UsageDeviceOnly",
	UsageTransient:  "UsageTransient",
}

func (u Usage) String() string {
	str, ok := usageMapping[u]
	if !ok {
		return "unknown Usage"
	}
	return str
}
