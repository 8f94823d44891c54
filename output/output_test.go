package output

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineWriterSplitsLines(t *testing.T) {
	var got []string
	w := newLineWriter(func(line string) error {
		got = append(got, line)
		return nil
	})

	_, err := w.WriteString("partial")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = w.WriteString(" line\nsecond\r\nthird")
	require.NoError(t, err)
	assert.Equal(t, []string{"partial line", "second"}, got)

	require.NoError(t, w.WriteLine(""))
	assert.Equal(t, []string{"partial line", "second", "third"}, got)

	require.NoError(t, w.WriteLine("tail"))
	require.NoError(t, w.flush())
	assert.Equal(t, []string{"partial line", "second", "third", "tail"}, got)
}

func TestLineWriterReportsBytesBeforeFailure(t *testing.T) {
	var got []string
	w := newLineWriter(func(line string) error {
		if line == "bad" {
			return fmt.Errorf("store rejected %q", line)
		}
		got = append(got, line)
		return nil
	})

	n, err := w.WriteString("one\ntwo\nbad\nlater\n")
	require.Error(t, err)
	assert.Equal(t, len("one\ntwo\n"), n)
	assert.Equal(t, []string{"one", "two"}, got)

	n, err = w.Write([]byte("bad\n"))
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestLineWriterFlushPartial(t *testing.T) {
	var got []string
	w := newLineWriter(func(line string) error {
		got = append(got, line)
		return nil
	})
	n, err := w.Write([]byte("no newline"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	require.NoError(t, w.flush())
	require.NoError(t, w.flush())
	assert.Equal(t, []string{"no newline"}, got)
}

func TestStreamFactoryPrefixesChannel(t *testing.T) {
	var buf bytes.Buffer
	f := NewStreamFactory(&buf)

	ch, err := f.CreateChannel(context.Background(), "Scripts")
	require.NoError(t, err)
	assert.Equal(t, "Scripts", ch.Name())

	require.NoError(t, ch.Writer().WriteLine("hello"))
	_, err = ch.Writer().WriteString("unterminated")
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	assert.Equal(t, "[Scripts] hello\n[Scripts] unterminated\n", buf.String())

	_, err = f.CreateChannel(context.Background(), "")
	assert.Error(t, err)
}

func TestMemoryFactoryConcurrentWriters(t *testing.T) {
	f := NewMemoryFactory()
	ch, err := f.CreateChannel(context.Background(), "Scripts")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = ch.Writer().WriteLine(fmt.Sprintf("%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.Lines("Scripts"), 200)
	assert.Equal(t, 1, f.Created("Scripts"))
	assert.Empty(t, f.Lines("Other"))
}

func TestSQLiteStorePersistsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "output.sqlite3")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)

	ch, err := store.CreateChannel(ctx, "Scripts")
	require.NoError(t, err)
	require.NoError(t, ch.Writer().WriteLine("one"))
	require.NoError(t, ch.Writer().WriteLine("two"))

	other, err := store.CreateChannel(ctx, "Other")
	require.NoError(t, err)
	require.NoError(t, other.Writer().WriteLine("elsewhere"))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	lines, err := store.Lines(ctx, "Scripts", 0)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "one", lines[0].Text)
	assert.Equal(t, "two", lines[1].Text)
	assert.Equal(t, "Scripts", lines[0].Channel)
	assert.False(t, lines[0].Time.IsZero())

	last, err := store.Lines(ctx, "Scripts", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "two", last[0].Text)

	names, err := store.Channels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other", "Scripts"}, names)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ch, err := store.CreateChannel(context.Background(), "Scripts")
	require.NoError(t, err)
	require.NoError(t, ch.Writer().WriteLine("kept"))

	lines, err := store.Lines(context.Background(), "Scripts", 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0].Text)
}

func TestTeeWritesToEveryFactory(t *testing.T) {
	a, b := NewMemoryFactory(), NewMemoryFactory()
	var buf bytes.Buffer
	f := Tee(a, b, NewStreamFactory(&buf))

	ch, err := f.CreateChannel(context.Background(), "Scripts")
	require.NoError(t, err)
	require.NoError(t, ch.Writer().WriteLine("both"))
	_, err = ch.Writer().WriteString("tail")
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	assert.Equal(t, []string{"both", "tail"}, a.Lines("Scripts"))
	assert.Equal(t, []string{"both", "tail"}, b.Lines("Scripts"))
	assert.Equal(t, "[Scripts] both\n[Scripts] tail\n", buf.String())
}
