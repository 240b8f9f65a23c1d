package config

// DeviceDefaults holds inventory-wide fallbacks merged into every device
// entry that leaves the field empty.
type DeviceDefaults struct {
	// Community is the known community used when an entry has none.
	Community string

	// PollInterval is the polling interval in seconds. Zero leaves the
	// scheduler default in place.
	PollInterval int
}

// rawDeviceEntry is the intermediate YAML-decoded form of a single device.
// The map key of the enclosing document is the device label.
//
//	Printer 1:
//	  address: 192.168.1.100
//	  community: public
//	  poll_interval: 300
type rawDeviceEntry struct {
	Address      string `yaml:"address"`
	IP           string `yaml:"ip"`
	Community    string `yaml:"community"`
	PollInterval int    `yaml:"poll_interval"`
}

type rawDefaults struct {
	Default rawDeviceEntry `yaml:"default"`
}
