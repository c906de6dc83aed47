package tunnel

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/memosono/internal/mailbox"
	"github.com/cory-johannsen/memosono/internal/presence"
)

// Message is one payload received over the tunnel. Sender is a handle in the
// room's group; resolve it to an identity with identity.Resolver.
type Message struct {
	Sender  presence.Handle
	Payload []byte
}

// Channel is the reliable, ordered, bidirectional message channel handed to
// the game engine. Messages from one sender arrive in send order; there is no
// ordering across senders.
type Channel interface {
	Send(payload []byte) error
	// Messages is never restarted. It is closed when the channel closes.
	Messages() <-chan Message
	// SelfHandle is the local participant's handle in Group.
	SelfHandle() presence.Handle
	Group() presence.Group
	Close() error
}

// Conn is the bound tunnel. It implements Channel.
type Conn struct {
	id       presence.TubeID
	self     presence.Handle
	group    presence.Group
	endpoint presence.TubeEndpoint
	inbox    *mailbox.Mailbox[Message]

	closeOnce sync.Once
	closeErr  error
}

var _ Channel = (*Conn)(nil)

func newConn(id presence.TubeID, self presence.Handle, group presence.Group) *Conn {
	return &Conn{
		id:    id,
		self:  self,
		group: group,
		inbox: mailbox.New[Message](),
	}
}

// deliver queues d. Deliveries after Close are dropped.
func (c *Conn) deliver(d presence.Delivery) {
	_ = c.inbox.Push(Message{Sender: d.Sender, Payload: d.Payload})
}

// ID returns the tube the tunnel runs over.
func (c *Conn) ID() presence.TubeID { return c.id }

func (c *Conn) SelfHandle() presence.Handle { return c.self }

func (c *Conn) Group() presence.Group { return c.group }

// Send delivers payload to every other participant on the tunnel.
func (c *Conn) Send(payload []byte) error {
	if c.inbox.IsClosed() {
		return fmt.Errorf("tunnel %d: %w", c.id, mailbox.ErrClosed)
	}
	if err := c.endpoint.Send(payload); err != nil {
		return fmt.Errorf("tunnel %d send: %w", c.id, err)
	}
	return nil
}

func (c *Conn) Messages() <-chan Message {
	return c.inbox.Events()
}

// Close detaches from the tube. It is idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.inbox.Close()
		if c.endpoint != nil {
			c.closeErr = c.endpoint.Close()
		}
	})
	return c.closeErr
}
