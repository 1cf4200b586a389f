package transport

import (
	"github.com/yndnr/devmesh-go/internal/core/message"
)

// LocalRef delivers envelopes to an in-process Handler on a dedicated
// goroutine. It is the Ref a member uses for devices it owns itself.
type LocalRef struct {
	name    string
	handler Handler
	box     *mailbox
}

// NewLocalRef starts a LocalRef in front of h.
func NewLocalRef(name string, h Handler) *LocalRef {
	r := &LocalRef{
		name:    name,
		handler: h,
		box:     newMailbox(),
	}
	go r.box.run(r.dispatch)
	return r
}

// Tell implements Ref.
func (r *LocalRef) Tell(env message.Envelope, sender Inbox) error {
	return r.box.put(letter{env: env, sender: sender})
}

// String implements Ref.
func (r *LocalRef) String() string {
	return "local://" + r.name
}

// Close stops the ref after draining queued envelopes.
func (r *LocalRef) Close() error {
	r.box.close()
	<-r.box.done
	return nil
}

func (r *LocalRef) dispatch(l letter) {
	r.handler.Handle(l.env, func(reply message.Envelope) {
		if l.sender != nil {
			l.sender.Deliver(reply)
		}
	})
}
