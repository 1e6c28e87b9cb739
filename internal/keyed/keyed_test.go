package keyed_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"p2pquotes/internal/keyed"
)

func TestTable_NoLostUpdates(t *testing.T) {
	t.Parallel()

	// Arrange:
	var tbl keyed.Table[int]
	var wg sync.WaitGroup

	// Act: read-modify-write from many goroutines on two keys.
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := "a"
			if i%2 == 1 {
				key = "b"
			}
			keyed.Do(&tbl, key, func(v *int) struct{} {
				cur := *v
				time.Sleep(time.Microsecond)
				*v = cur + 1
				return struct{}{}
			})
		}()
	}
	wg.Wait()

	// Assert:
	require.Equal(t, 100, tbl.Get("a"))
	require.Equal(t, 100, tbl.Get("b"))
	require.Equal(t, 2, tbl.Len())
}

func TestTable_KeysDoNotBlockEachOther(t *testing.T) {
	t.Parallel()

	var tbl keyed.Table[string]
	entered := make(chan struct{})
	release := make(chan struct{})

	go keyed.Do(&tbl, "slow", func(v *string) bool {
		close(entered)
		<-release
		return true
	})
	<-entered

	done := make(chan struct{})
	go func() {
		keyed.Do(&tbl, "fast", func(v *string) bool { *v = "ok"; return true })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated key was blocked")
	}
	close(release)
	require.Equal(t, "ok", tbl.Get("fast"))
}
