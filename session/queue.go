package session

import (
	"fmt"

	"github.com/bjoeris/renderdoc-sub003/memutils"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// QueueClass describes which kind of work a queue is scheduled for. Exactly one of Graphics,
// Compute and Transfer is set for a queue from a family that supports any of them.
type QueueClass struct {
	Graphics bool
	Compute  bool
	Transfer bool

	FamilyIndex int
	QueueIndex  int
}

func (c QueueClass) String() string {
	kind := "other"
	switch {
	case c.Graphics:
		kind = "graphics"
	case c.Compute:
		kind = "compute"
	case c.Transfer:
		kind = "transfer"
	}
	return fmt.Sprintf("%s (family %d, queue %d)", kind, c.FamilyIndex, c.QueueIndex)
}

// classify applies graphics > compute > transfer precedence. A graphics family is reported
// as graphics only, even though it always supports compute and transfer work as well.
func classify(flags core1_0.QueueFlags) QueueClass {
	switch {
	case flags&core1_0.QueueGraphics != 0:
		return QueueClass{Graphics: true}
	case flags&core1_0.QueueCompute != 0:
		return QueueClass{Compute: true}
	case flags&core1_0.QueueTransfer != 0:
		return QueueClass{Transfer: true}
	}
	return QueueClass{}
}

// queueCount is the number of queues the device was created with in familyIndex, capped at
// what the family reports
func (s *ReplaySession) queueCount(familyIndex int) int {
	for _, info := range s.deviceQueues {
		if info.QueueFamilyIndex == familyIndex {
			return memutils.Min(len(info.QueuePriorities), s.queueFamilies[familyIndex].QueueCount)
		}
	}
	return 0
}

// ClassifyQueue finds the family and index queue was retrieved from and classifies it. Only
// queues listed in Options.DeviceQueues are searched, since retrieving a queue the device was
// not created with is invalid; without that list every queue is an error.
func (s *ReplaySession) ClassifyQueue(queue core1_0.Queue) (QueueClass, error) {
	if len(s.deviceQueues) == 0 {
		return QueueClass{}, errors.New("cannot classify queues: the session was opened without the device's queue create infos")
	}

	for familyIndex, family := range s.queueFamilies {
		count := s.queueCount(familyIndex)

		for queueIndex := 0; queueIndex < count; queueIndex++ {
			if s.device.GetQueue(familyIndex, queueIndex) != queue {
				continue
			}

			class := classify(family.Flags)
			class.FamilyIndex = familyIndex
			class.QueueIndex = queueIndex
			return class, nil
		}
	}

	return QueueClass{}, errors.New("queue was not retrieved from this session's device")
}
