package bplustree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shubhnegi/pagedkv/storage/bufferpool"
	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/leaf"
)

func newTestTree(t *testing.T, capacity, maxInternalKeys, leafEpsilon int) (*BPlusTree, *diskmanager.DiskManager) {
	t.Helper()

	dm := diskmanager.NewDiskManager()
	bp, err := bufferpool.NewBufferPool(capacity, dm)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "test.idx")
	fileID, err := dm.OpenFile(path)
	require.NoError(t, err)

	tree, err := Open(fileID, bp, dm, maxInternalKeys, leafEpsilon, nil)
	require.NoError(t, err)
	return tree, dm
}

func TestOpenCreatesEmptyRootLeaf(t *testing.T) {
	tree, _ := newTestTree(t, 64, 8, 24)

	_, ok, err := tree.Get([]byte("missing"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected no value in a fresh tree")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	tree, _ := newTestTree(t, 64, 8, 24)

	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("key-%03d", i))
		val := leaf.NewValue([]byte(fmt.Sprintf("value-%03d", i)), false, uint64(i))
		require.NoError(t, tree.Put(key, val))
	}

	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("key-%03d", i))
		v, ok, err := tree.Get(key)
		require.NoError(t, err)
		require.True(t, ok, "expected key %s to be present", key)
		require.Equal(t, fmt.Sprintf("value-%03d", i), string(v.Payload))
	}
}

func TestPutOverwritesExistingKey(t *testing.T) {
	tree, _ := newTestTree(t, 64, 8, 24)

	key := []byte("dup")
	require.NoError(t, tree.Put(key, leaf.NewValue([]byte("first"), false, 1)))
	require.NoError(t, tree.Put(key, leaf.NewValue([]byte("second-longer"), false, 2)))

	v, ok, err := tree.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second-longer", string(v.Payload))
}

func TestDeleteRemovesKey(t *testing.T) {
	tree, _ := newTestTree(t, 64, 8, 24)

	key := []byte("gone")
	require.NoError(t, tree.Put(key, leaf.NewValue([]byte("x"), false, 1)))
	require.NoError(t, tree.Delete(key))

	_, ok, err := tree.Get(key)
	require.NoError(t, err)
	require.False(t, ok, "expected key to be gone after Delete")
}

func TestDeleteAbsentKeyIsNoop(t *testing.T) {
	tree, _ := newTestTree(t, 64, 8, 24)
	require.NoError(t, tree.Delete([]byte("never-existed")))
}

func TestManyInsertsForceLeafAndInternalSplits(t *testing.T) {
	tree, _ := newTestTree(t, 256, 8, 24)

	const n = 400
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k-%05d", i))
		val := leaf.NewValue([]byte(fmt.Sprintf("payload-for-key-%05d", i)), false, uint64(i))
		if err := tree.Put(key, val); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k-%05d", i))
		v, ok, err := tree.Get(key)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if !ok {
			t.Fatalf("expected key %d to survive splits", i)
		}
		want := fmt.Sprintf("payload-for-key-%05d", i)
		if string(v.Payload) != want {
			t.Fatalf("Get(%d) = %q, want %q", i, v.Payload, want)
		}
	}

	if tree.root == 0 {
		t.Fatalf("expected a root page to be assigned")
	}
}

func TestDeletesAfterManyInsertsRebalance(t *testing.T) {
	tree, _ := newTestTree(t, 256, 8, 24)

	const n = 300
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k-%05d", i))
		val := leaf.NewValue([]byte(fmt.Sprintf("v-%05d", i)), false, uint64(i))
		if err := tree.Put(key, val); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}

	// Delete every other key, exercising merge/level rebalancing.
	for i := 0; i < n; i += 2 {
		key := []byte(fmt.Sprintf("k-%05d", i))
		if err := tree.Delete(key); err != nil {
			t.Fatalf("Delete(%d): %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k-%05d", i))
		_, ok, err := tree.Get(key)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if i%2 == 0 && ok {
			t.Fatalf("expected key %d to be deleted", i)
		}
		if i%2 != 0 && !ok {
			t.Fatalf("expected key %d to survive deletions", i)
		}
	}
}

func TestCloseFlushesPages(t *testing.T) {
	tree, _ := newTestTree(t, 64, 8, 24)

	if err := tree.Put([]byte("a"), leaf.NewValue([]byte("b"), false, 1)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
