package inmem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/storage/inmem"
)

func TestGroupKeys_Lifecycle(t *testing.T) {
	groups := inmem.NewGroupKeys()

	_, err := groups.GroupKeys(1)
	require.Error(t, err, "provider must be opened first")

	require.NoError(t, groups.Open())
	require.NoError(t, groups.SetGroupKey(1, []byte("key-material-a")))
	require.NoError(t, groups.SetGroupKey(1, []byte("key-material-a")))
	require.NoError(t, groups.SetGroupKey(1, []byte("key-material-b")))

	keys, err := groups.GroupKeys(1)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, groups.RemoveGroupKeys(1))
	keys, err = groups.GroupKeys(1)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// keys survive a close/open cycle
	require.NoError(t, groups.SetGroupKey(2, []byte("key-material-c")))
	require.NoError(t, groups.Close())
	require.NoError(t, groups.Open())
	keys, err = groups.GroupKeys(2)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestGroupKeys_ReturnsCopies(t *testing.T) {
	groups := inmem.NewGroupKeys()
	require.NoError(t, groups.Open())
	require.NoError(t, groups.SetGroupKey(1, []byte{1, 2, 3}))

	keys, err := groups.GroupKeys(1)
	require.NoError(t, err)
	keys[0][0] = 0xff

	keys, err = groups.GroupKeys(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, keys[0])
}
