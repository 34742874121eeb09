package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventQueueImpl", func() {
	var (
		queue *EventQueueImpl
	)

	BeforeEach(func() {
		queue = NewEventQueue()
	})

	It("should return nil when empty", func() {
		Expect(queue.Pop()).To(BeNil())
		Expect(queue.Peek()).To(BeNil())
	})

	It("should pop in time order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			queue.Push(NewEventBase(VTime(rand.Intn(1000)), PhaseActive, nil))
		}

		now := VTime(0)
		for i := 0; i < numEvents; i++ {
			evt := queue.Pop()
			Expect(evt.Time()).To(BeNumerically(">=", now))
			now = evt.Time()
		}
		Expect(queue.Len()).To(Equal(0))
	})

	It("should order events of the same time by phase", func() {
		ro := NewEventBase(5, PhaseReadOnly, nil)
		rw := NewEventBase(5, PhaseReadWrite, nil)
		active := NewEventBase(5, PhaseActive, nil)
		later := NewEventBase(6, PhaseActive, nil)

		queue.Push(later)
		queue.Push(ro)
		queue.Push(rw)
		queue.Push(active)

		Expect(queue.Peek()).To(BeIdenticalTo(active))
		Expect(queue.Pop()).To(BeIdenticalTo(active))
		Expect(queue.Pop()).To(BeIdenticalTo(rw))
		Expect(queue.Pop()).To(BeIdenticalTo(ro))
		Expect(queue.Pop()).To(BeIdenticalTo(later))
	})

	It("should keep insertion order within a phase", func() {
		events := make([]*EventBase, 50)
		for i := range events {
			events[i] = NewEventBase(10, PhaseReadWrite, nil)
			queue.Push(events[i])
		}

		for i := range events {
			Expect(queue.Pop()).To(BeIdenticalTo(events[i]))
		}
	})
})
