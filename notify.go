// notify.go - Async pub/sub notification bus for FDD drive events (spec §5, §6.7).
//
// Grounded on runtime_ipc.go's goroutine-per-connection dispatch style and
// original_source's MessageCenter::Post pattern (fdd.h calls
// messageCenter.Post(NC_FDD_MOTOR_STARTED, ...)), reduced to a typed Go channel bus: one
// goroutine drains a buffered channel and fans out to subscribers, so FDD.process() never
// blocks on a slow subscriber.

package main

// Notification event IDs (spec §6.7).
const (
	NotifyFDDMotorStarted = "FDD_MOTOR_STARTED"
	NotifyFDDMotorStopped = "FDD_MOTOR_STOPPED"
	NotifyFDDDiskInserted = "FDD_DISK_INSERTED"
	NotifyFDDDiskEjected  = "FDD_DISK_EJECTED"
)

// Notification is an immutable event payload (spec §6.7).
type Notification struct {
	EventID    string
	EmulatorID string
	DriveID    byte
	DiskPath   string // empty for motor events
}

// NotificationBus delivers notifications asynchronously to any number of subscribers. The
// zero value is not usable; construct with NewNotificationBus.
type NotificationBus struct {
	subscribers []func(Notification)
	queue       chan Notification
	done        chan struct{}
}

// NewNotificationBus starts the bus's delivery goroutine with the given queue depth.
func NewNotificationBus(queueDepth int) *NotificationBus {
	b := &NotificationBus{
		queue: make(chan Notification, queueDepth),
		done:  make(chan struct{}),
	}
	go b.deliverLoop()
	return b
}

// Subscribe registers fn to receive every future notification. Not safe to call
// concurrently with Post/Close; callers subscribe during emulator wiring, before the
// message-center thread starts handling events.
func (b *NotificationBus) Subscribe(fn func(Notification)) {
	b.subscribers = append(b.subscribers, fn)
}

// Post enqueues a notification for asynchronous delivery. Never blocks the caller's
// hot path beyond the channel send (the FDD/emulator thread, per spec §5's
// cooperative-scheduling model).
func (b *NotificationBus) Post(n Notification) {
	select {
	case b.queue <- n:
	case <-b.done:
	}
}

func (b *NotificationBus) deliverLoop() {
	for {
		select {
		case n := <-b.queue:
			for _, fn := range b.subscribers {
				fn(n)
			}
		case <-b.done:
			return
		}
	}
}

// Close stops the delivery goroutine. In-flight notifications already read off the queue
// are still delivered; anything still queued is dropped.
func (b *NotificationBus) Close() {
	close(b.done)
}
