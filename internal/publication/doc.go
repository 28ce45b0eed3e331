// Package publication implements the live tasks publication.
//
// A Hub holds one Subscription per connected viewer. Task change events from
// the events package are translated per viewer into added, changed and
// removed messages, so each subscriber only ever learns about the tasks it
// may see: public tasks and its own private ones.
package publication
