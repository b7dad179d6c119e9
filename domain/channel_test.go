package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelCatalog_IsFixedAndClosed(t *testing.T) {
	req := require.New(t)

	req.Len(Channels(), 6)
	req.Len(ChannelIDs(), 6)

	for _, id := range ChannelIDs() {
		req.True(IsValidChannel(id))
	}

	req.False(IsValidChannel("spam-room"))
	req.False(IsValidChannel(""))
	req.False(IsValidChannel("TECH")) // ids are case sensitive
}

func TestNewChannel_OwnsItsOwnStore(t *testing.T) {
	req := require.New(t)

	tech := NewChannel(Tech)
	politics := NewChannel(Politics)

	req.NotNil(tech.Store)
	req.NotNil(politics.Store)
	req.NotSame(tech.Store, politics.Store)
}
