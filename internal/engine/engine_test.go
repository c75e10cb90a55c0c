package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_ReadWriteDelete(t *testing.T) {
	ms := NewMemStore(nil, nil)

	_, err := ms.Read("orders")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	require.NoError(t, ms.Write("orders", []byte(`[ {"id": "ord_1"} ]`)))

	got, err := ms.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"ord_1"}]`, string(got))

	require.NoError(t, ms.Delete("orders"))
	_, err = ms.Read("orders")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	assert.NoError(t, ms.Delete("never-written"))
}

func TestMemStore_RejectsBadInput(t *testing.T) {
	ms := NewMemStore(nil, nil)
	assert.ErrorIs(t, ms.Write("orders", []byte(`{not json`)), ErrInvalidJSON)
	assert.ErrorIs(t, ms.Write("../etc", []byte(`[]`)), ErrInvalidCollectionName)
	assert.ErrorIs(t, ms.Write("", []byte(`[]`)), ErrInvalidCollectionName)
	assert.ErrorIs(t, ms.Write("has space", []byte(`[]`)), ErrInvalidCollectionName)
}

func TestMemStore_ReadReturnsCopy(t *testing.T) {
	ms := NewMemStore(nil, nil)
	require.NoError(t, ms.Write("c", []byte(`[1]`)))

	got, _ := ms.Read("c")
	got[1] = '9'

	again, _ := ms.Read("c")
	assert.Equal(t, `[1]`, string(again))
}

func TestMemStore_Collections(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Write("tracking", []byte(`[]`))
	ms.Write("customers", []byte(`[]`))
	ms.Write("orders", []byte(`[]`))

	names, err := ms.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "tracking"}, names)
}

func TestMemStore_LastWriteWins(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Write("orders", []byte(`[{"id":"a"}]`))
	ms.Write("orders", []byte(`[{"id":"b"}]`))

	got, _ := ms.Read("orders")
	assert.Equal(t, `[{"id":"b"}]`, string(got))
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersistence(dir)
	require.NoError(t, err)

	require.NoError(t, p.SaveCollection("orders", []byte(`[{"id":"ord_1"}]`)))
	_, err = os.Stat(filepath.Join(dir, "orders.json"))
	require.NoError(t, err, "collection file was not created")

	// Files that are not collections are ignored.
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644)
	os.WriteFile(filepath.Join(dir, "bad name.json"), []byte("[]"), 0644)

	all, err := p.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, `[{"id":"ord_1"}]`, string(all["orders"]))

	require.NoError(t, p.DeleteCollection("orders"))
	require.NoError(t, p.DeleteCollection("orders"))
	all, _ = p.LoadAll()
	assert.Empty(t, all)
}

func TestMemStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	p, _ := NewPersistence(dir)
	ms := NewMemStore(nil, p)

	require.NoError(t, ms.Write("customers", []byte(`[{"id":"c1"}]`)))
	require.NoError(t, ms.Write("orders", []byte(`[]`)))
	require.NoError(t, ms.Delete("orders"))
	ms.Wait()

	allData, err := p.LoadAll()
	require.NoError(t, err)
	ms2 := NewMemStore(allData, p)

	val, err := ms2.Read("customers")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"c1"}]`, string(val))

	_, err = ms2.Read("orders")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestMemStore_Concurrent(t *testing.T) {
	ms := NewMemStore(nil, nil)
	const (
		goroutines = 10
		ops        = 100
	)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("c%d", id)
			for j := 0; j < ops; j++ {
				ms.Write(name, []byte(fmt.Sprintf("[%d]", j)))
				ms.Read(name)
			}
		}(i)
	}
	wg.Wait()

	names, _ := ms.Collections()
	assert.Len(t, names, goroutines)
	for i := 0; i < goroutines; i++ {
		got, err := ms.Read(fmt.Sprintf("c%d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("[%d]", ops-1), string(got))
	}
}

func TestSQLStore(t *testing.T) {
	s, err := OpenSQLStore(filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Read("orders")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	require.NoError(t, s.Write("orders", []byte(`[ {"id":"ord_1"} ]`)))
	require.NoError(t, s.Write("orders", []byte(`[{"id":"ord_2"}]`)))
	require.NoError(t, s.Write("customers", []byte(`[]`)))
	assert.ErrorIs(t, s.Write("orders", []byte(`nope`)), ErrInvalidJSON)

	got, err := s.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"ord_2"}]`, string(got))

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)

	require.NoError(t, s.Delete("orders"))
	_, err = s.Read("orders")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestMigrate(t *testing.T) {
	src := NewMemStore(nil, nil)
	src.Write("orders", []byte(`[{"id":"ord_1"}]`))
	src.Write("tracking", []byte(`[]`))

	dst, err := OpenSQLStore(filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)
	defer dst.Close()

	n, err := Migrate(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := dst.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"ord_1"}]`, string(got))

	// And back again.
	back := NewMemStore(nil, nil)
	n, err = Migrate(dst, back)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("admin_session"))
	assert.True(t, ValidName("orders-2024"))
	assert.False(t, ValidName("a/b"))
	assert.False(t, ValidName("a.json"))
}

func TestMemStore_CompactsLoadedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.json"), []byte("[\n  {\"id\": \"a\"}\n]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("[{"), 0644))

	p, _ := NewPersistence(dir)
	all, err := p.LoadAll()
	require.NoError(t, err)
	ms := NewMemStore(all, p)

	got, err := ms.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))

	_, err = ms.Read("broken")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestMemStore_SeesFilesWrittenByAnotherProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"ord_1"}]`), 0644))

	p, _ := NewPersistence(dir)
	all, _ := p.LoadAll()
	ms := NewMemStore(all, p)

	got, err := ms.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"ord_1"}]`, string(got))

	// Another process replaces the file.
	require.NoError(t, os.WriteFile(path, []byte("[\n{\"id\":\"ord_1\"},\n{\"id\":\"ord_2\"}\n]"), 0644))
	got, err = ms.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"ord_1"},{"id":"ord_2"}]`, string(got))

	// And creates a new collection.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers.json"), []byte(`[]`), 0644))
	names, err := ms.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)

	// And removes one.
	require.NoError(t, os.Remove(path))
	_, err = ms.Read("orders")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestMemStore_OwnWritesAreNotReloaded(t *testing.T) {
	dir := t.TempDir()
	p, _ := NewPersistence(dir)
	ms := NewMemStore(nil, p)

	require.NoError(t, ms.Write("orders", []byte(`[{"id":"a"}]`)))
	require.NoError(t, ms.Write("orders", []byte(`[{"id":"b"}]`)))
	got, err := ms.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"b"}]`, string(got))

	ms.Wait()
	got, err = ms.Read("orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"b"}]`, string(got))
}
