package physics

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Contact is a begin-contact report between two bodies
type Contact struct {
	A, B          Handle
	RelativeSpeed float64 // impact speed along the contact normal
}

// Involves reports whether h is one of the contact's bodies
func (c Contact) Involves(h Handle) bool {
	return c.A == h || c.B == h
}

// ContactFunc receives contacts with the context value given at subscription
type ContactFunc func(ctx any, c Contact)

// SubscriptionID identifies a contact subscription; zero is never issued
type SubscriptionID uint64

type contactSub struct {
	id  SubscriptionID
	ctx any
	fn  ContactFunc
}

// OnContactBegin registers fn for every new contact
// Callbacks run synchronously at the end of Step, in solver order
func (w *World) OnContactBegin(ctx any, fn ContactFunc) SubscriptionID {
	w.nextSub++
	w.subs = append(w.subs, contactSub{id: w.nextSub, ctx: ctx, fn: fn})
	return w.nextSub
}

// OffContactBegin removes a subscription; unknown ids are ignored
func (w *World) OffContactBegin(id SubscriptionID) {
	for i, s := range w.subs {
		if s.id == id {
			w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
			return
		}
	}
}

func (w *World) beginContact(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	sa, sb := arb.Shapes()
	ba, okA := sa.UserData.(*body)
	bb, okB := sb.UserData.(*body)
	if !okA || !okB {
		return true
	}
	ca, cb := arb.Bodies()
	rel := ca.Velocity().Sub(cb.Velocity())
	speed := math.Abs(rel.Dot(arb.Normal()))
	w.pending = append(w.pending, Contact{A: ba.handle, B: bb.handle, RelativeSpeed: speed})
	return true
}

func (w *World) dispatchContacts() {
	if len(w.pending) == 0 {
		return
	}
	contacts := w.pending
	w.pending = nil
	if len(w.subs) == 0 {
		return
	}
	subs := make([]contactSub, len(w.subs))
	copy(subs, w.subs)

	for _, c := range contacts {
		for _, s := range subs {
			w.invoke(s, c)
		}
	}
}

func (w *World) invoke(s contactSub, c Contact) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("contact callback panic", "subscription", s.id, "a", c.A, "b", c.B, "panic", r)
		}
	}()
	s.fn(s.ctx, c)
}
