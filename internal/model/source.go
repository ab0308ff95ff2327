package model

// PacketSource is the burst-oriented pull contract the engine depends on.
// ReceiveBurst fills views with up to len(views) frames for the given queue
// and returns how many were written. It never blocks: zero means an empty
// burst, not end of stream. Implementations guarantee that frames of the same
// flow always land on the same queue (the RSS property the per-worker state
// partitioning relies on).
type PacketSource interface {
	ReceiveBurst(queue int, views []PacketView) int
	Queues() int
	Close() error
}
