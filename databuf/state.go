package databuf

//go:generate go tool stringer -type=State -trimprefix=State

// State is the flow-control bit of a block, stored as its semaphore value.
type State int

const (
	StateFree   State = iota // writable by the producer
	StateFilled              // header and payload complete, readable by consumers
)
