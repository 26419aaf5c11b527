package common

import "github.com/google/uuid"

// NewEventID generates a unique alert/sector event id, prefixed for grep-ability in logs.
func NewEventID() string {
	return "evt_" + uuid.New().String()
}

// NewBundleID generates a unique suggestion bundle id.
func NewBundleID() string {
	return "bndl_" + uuid.New().String()
}

// NewCorrelationID generates a correlation id. main generates one at process
// start and logs it with the startup banner.
func NewCorrelationID() string {
	return "cyc_" + uuid.New().String()
}

// NewSuppressionID generates a unique suppression-log row id.
func NewSuppressionID() string {
	return "sup_" + uuid.New().String()
}
