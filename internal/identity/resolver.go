// Package identity resolves channel-local participant handles into stable
// participant identities.
package identity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/memosono/internal/presence"
)

// ErrResolution is matched by every error returned from Resolver.Resolve.
var ErrResolution = errors.New("handle resolution failed")

// ResolutionError reports a handle whose owning identity could not be
// determined. It is recoverable: callers drop or defer the message it
// concerns.
type ResolutionError struct {
	Handle presence.Handle
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving handle %d: %v", e.Handle, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrResolution) hold for every ResolutionError.
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// Resolver maps handles of one channel group to identities. It is bound to
// that group for its lifetime and is safe for concurrent use.
type Resolver struct {
	conn      presence.Connection
	group     presence.Group
	directory presence.Directory
	logger    *zap.Logger
}

// NewResolver creates a Resolver for handles of group.
//
// Precondition: conn, group, directory, and logger must be non-nil.
func NewResolver(conn presence.Connection, group presence.Group, directory presence.Directory, logger *zap.Logger) *Resolver {
	return &Resolver{
		conn:      conn,
		group:     group,
		directory: directory,
		logger:    logger,
	}
}

// Resolve returns the identity owning the channel-specific handle csh.
//
// Postcondition: Returns the owner's identity, or a *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, csh presence.Handle) (presence.Identity, error) {
	r.logger.Debug("resolving handle owner", zap.Uint32("cs_handle", uint32(csh)))

	handle, err := r.owner(ctx, csh)
	if err != nil {
		return presence.Identity{}, &ResolutionError{Handle: csh, Err: err}
	}

	id, err := r.directory.LookupByHandle(ctx, r.conn.Name(), r.conn.Path(), handle)
	if err != nil {
		return presence.Identity{}, &ResolutionError{Handle: csh, Err: fmt.Errorf("directory lookup of handle %d: %w", handle, err)}
	}
	return id, nil
}

// owner maps csh to a contact handle on the connection.
func (r *Resolver) owner(ctx context.Context, csh presence.Handle) (presence.Handle, error) {
	self, err := r.group.SelfHandle(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting group self handle: %w", err)
	}
	if csh == self {
		h, err := r.conn.SelfHandle(ctx)
		if err != nil {
			return 0, fmt.Errorf("getting connection self handle: %w", err)
		}
		r.logger.Debug("handle belongs to local participant",
			zap.Uint32("cs_handle", uint32(csh)),
			zap.Uint32("handle", uint32(h)),
		)
		return h, nil
	}

	flags, err := r.group.Flags(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting group flags: %w", err)
	}
	if !flags.Has(presence.GroupFlagChannelSpecificHandles) {
		if csh == 0 {
			return 0, errors.New("zero handle")
		}
		r.logger.Debug("non channel-specific handle belongs to itself", zap.Uint32("handle", uint32(csh)))
		return csh, nil
	}

	owners, err := r.group.HandleOwners(ctx, []presence.Handle{csh})
	if err != nil {
		return 0, fmt.Errorf("getting handle owner: %w", err)
	}
	if len(owners) != 1 || owners[0] == 0 {
		return 0, errors.New("owner unknown")
	}
	r.logger.Debug("channel-specific handle owner found",
		zap.Uint32("cs_handle", uint32(csh)),
		zap.Uint32("handle", uint32(owners[0])),
	)
	return owners[0], nil
}
