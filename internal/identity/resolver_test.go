package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/memosono/internal/mocks"
	"github.com/cory-johannsen/memosono/internal/presence"
)

type resolverMocks struct {
	conn      *mocks.MockConnection
	group     *mocks.MockGroup
	directory *mocks.MockDirectory
	resolver  *Resolver
}

func newResolverMocks(t *testing.T) resolverMocks {
	ctrl := gomock.NewController(t)
	m := resolverMocks{
		conn:      mocks.NewMockConnection(ctrl),
		group:     mocks.NewMockGroup(ctrl),
		directory: mocks.NewMockDirectory(ctrl),
	}
	m.conn.EXPECT().Name().Return("org.memosono.Local.alice").AnyTimes()
	m.conn.EXPECT().Path().Return("/org/memosono/Local/alice").AnyTimes()
	m.resolver = NewResolver(m.conn, m.group, m.directory, zaptest.NewLogger(t))
	return m
}

func TestResolve_SelfHandle(t *testing.T) {
	ctx := context.Background()
	m := newResolverMocks(t)
	alice := presence.Identity{Key: "k-alice", Nick: "alice"}

	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(17), nil)
	m.conn.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(1), nil)
	m.directory.EXPECT().
		LookupByHandle(gomock.Any(), "org.memosono.Local.alice", "/org/memosono/Local/alice", presence.Handle(1)).
		Return(alice, nil)

	id, err := m.resolver.Resolve(ctx, 17)
	require.NoError(t, err)
	assert.Equal(t, alice, id)
}

func TestResolve_ChannelSpecificHandle(t *testing.T) {
	ctx := context.Background()
	m := newResolverMocks(t)
	bob := presence.Identity{Key: "k-bob", Nick: "bob"}

	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(17), nil)
	m.group.EXPECT().Flags(gomock.Any()).Return(presence.GroupFlagChannelSpecificHandles, nil)
	m.group.EXPECT().HandleOwners(gomock.Any(), []presence.Handle{18}).Return([]presence.Handle{2}, nil)
	m.directory.EXPECT().LookupByHandle(gomock.Any(), gomock.Any(), gomock.Any(), presence.Handle(2)).Return(bob, nil)

	id, err := m.resolver.Resolve(ctx, 18)
	require.NoError(t, err)
	assert.Equal(t, bob, id)
}

func TestResolve_PlainHandleUsedAsIs(t *testing.T) {
	ctx := context.Background()
	m := newResolverMocks(t)
	bob := presence.Identity{Key: "k-bob", Nick: "bob"}

	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(1), nil)
	m.group.EXPECT().Flags(gomock.Any()).Return(presence.GroupFlags(0), nil)
	m.directory.EXPECT().LookupByHandle(gomock.Any(), gomock.Any(), gomock.Any(), presence.Handle(2)).Return(bob, nil)

	id, err := m.resolver.Resolve(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, bob, id)
}

func TestResolve_OwnerLookupFails(t *testing.T) {
	ctx := context.Background()
	m := newResolverMocks(t)
	cause := errors.New("handle not available")

	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(17), nil)
	m.group.EXPECT().Flags(gomock.Any()).Return(presence.GroupFlagChannelSpecificHandles, nil)
	m.group.EXPECT().HandleOwners(gomock.Any(), []presence.Handle{99}).Return(nil, cause)

	_, err := m.resolver.Resolve(ctx, 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, cause)

	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, presence.Handle(99), rerr.Handle)
}

func TestResolve_ZeroOwner(t *testing.T) {
	m := newResolverMocks(t)
	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(17), nil)
	m.group.EXPECT().Flags(gomock.Any()).Return(presence.GroupFlagChannelSpecificHandles, nil)
	m.group.EXPECT().HandleOwners(gomock.Any(), gomock.Any()).Return([]presence.Handle{0}, nil)

	_, err := m.resolver.Resolve(context.Background(), 20)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestResolve_DirectoryNotFound(t *testing.T) {
	m := newResolverMocks(t)
	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(1), nil)
	m.group.EXPECT().Flags(gomock.Any()).Return(presence.GroupFlags(0), nil)
	m.directory.EXPECT().LookupByHandle(gomock.Any(), gomock.Any(), gomock.Any(), presence.Handle(5)).
		Return(presence.Identity{}, presence.ErrNotFound)

	_, err := m.resolver.Resolve(context.Background(), 5)
	assert.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, presence.ErrNotFound)
}

func TestResolve_ZeroPlainHandle(t *testing.T) {
	m := newResolverMocks(t)
	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(1), nil)
	m.group.EXPECT().Flags(gomock.Any()).Return(presence.GroupFlags(0), nil)

	_, err := m.resolver.Resolve(context.Background(), 0)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestResolve_GroupSelfHandleFails(t *testing.T) {
	m := newResolverMocks(t)
	m.group.EXPECT().SelfHandle(gomock.Any()).Return(presence.Handle(0), errors.New("gone"))

	_, err := m.resolver.Resolve(context.Background(), 3)
	assert.ErrorIs(t, err, ErrResolution)
}
