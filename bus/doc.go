// Package bus provides in-process frame transport for framepipe.
//
// A Bus distributes frames to topic subscribers. Subscriptions have an
// effective queue depth of one: the default DropOld policy always accepts
// a new frame and replaces the undelivered one, so a slow consumer sees
// the latest frame rather than a growing backlog. The alternative DropNew
// policy delivers into a caller-owned channel without blocking, dropping
// the new frame when the channel is full.
//
// Publish transfers frame ownership to the bus; a frame replaced under
// DropOld is simply discarded. A frame handed out by a Receiver belongs
// to the receiver's caller.
package bus
