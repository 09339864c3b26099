package rtos

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// TimerList is a wake-time ordered singly linked list of timers. Timers with
// equal wake times fire in the order they were scheduled. It is not safe for
// concurrent use; the owning kernel serialises access.
type TimerList struct {
	head *Timer
}

// before reports whether a is earlier than b, tolerating tick wrap-around.
func before(a, b uint32) bool {
	return int32(a-b) < 0
}

// Schedule adds a timer to the list
func (l *TimerList) Schedule(t *Timer) {
	t.Next = nil
	if l.head == nil || before(t.WakeTime, l.head.WakeTime) {
		t.Next = l.head
		l.head = t
		return
	}

	current := l.head
	for current.Next != nil && !before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Remove unlinks t. It reports whether t was scheduled.
func (l *TimerList) Remove(t *Timer) bool {
	if l.head == t {
		l.head = t.Next
		t.Next = nil
		return true
	}
	for current := l.head; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return true
		}
	}
	return false
}

// NextWake returns the wake time of the earliest timer.
func (l *TimerList) NextWake() (uint32, bool) {
	if l.head == nil {
		return 0, false
	}
	return l.head.WakeTime, true
}

// Empty reports whether no timer is scheduled
func (l *TimerList) Empty() bool {
	return l.head == nil
}

// PopDue unlinks and returns the earliest timer if it is due at now.
func (l *TimerList) PopDue(now uint32) *Timer {
	if l.head == nil || before(now, l.head.WakeTime) {
		return nil
	}
	t := l.head
	l.head = t.Next
	t.Next = nil // Clear Next pointer to avoid circular references
	return t
}

// Run calls the timer's handler and puts it back if it asks to be rescheduled.
func (l *TimerList) Run(t *Timer) {
	if t.Handler(t) == SF_RESCHEDULE {
		l.Schedule(t)
	}
}

// Dispatch processes every timer with WakeTime <= now and returns how many
// handlers ran.
func (l *TimerList) Dispatch(now uint32) int {
	n := 0
	for t := l.PopDue(now); t != nil; t = l.PopDue(now) {
		l.Run(t)
		n++
	}
	return n
}
