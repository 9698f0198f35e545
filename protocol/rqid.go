// File: protocol/rqid.go
// License: Apache-2.0

package protocol

import "code.hybscloud.com/atomix"

// IDAllocator hands out 16-bit request ids. Ids wrap monotonically,
// skipping zero and the reserved event sub-range so that an assigned id
// can always be matched against the pending set.
type IDAllocator struct {
	counter atomix.Uint32
}

// Next returns the next usable request id.
func (a *IDAllocator) Next() uint16 {
	for {
		id := uint16(a.counter.Add(1))
		if id != 0 && !IsEventID(id) {
			return id
		}
	}
}
