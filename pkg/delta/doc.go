// Package delta computes and applies scene changes.
//
// A Producer diffs the live scene against the tracker once per tick and
// emits Rename, Remove, Create and Update commands in that order. A
// Consumer applies commands received from peers and updates the same
// tracker, so changes that arrived from the network are never reported
// again as local ones.
//
//	tr := tracker.Build(world)
//	prod := delta.NewProducer(world, reg, tr, logger)
//	cons := delta.NewConsumer(world, reg, tr, delta.ConsumerConfig{Logger: logger})
//
//	payload, cmds := prod.Frame()     // nil payload: nothing changed
//	res, err := cons.ApplyUpdate(in)  // in: an Update payload from a peer
package delta
