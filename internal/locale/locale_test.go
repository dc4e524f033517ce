package locale

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSet(t *testing.T) {
	s := DefaultSet()
	assert.Equal(t, Russian, s.Default())
	assert.Equal(t, []string{"ru", "en", "kg"}, s.Codes())
}

func TestNewSetRequiresDefault(t *testing.T) {
	_, err := NewSet("  ")
	assert.Error(t, err)
}

func TestNewSetDedupesAndAddsDefault(t *testing.T) {
	s, err := NewSet("EN", "ru", "en", "ru")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "ru"}, s.Codes())
}

func TestNormalize(t *testing.T) {
	s := DefaultSet()
	tests := []struct {
		in   string
		want string
	}{
		{"ru", "ru"},
		{"EN", "en"},
		{"kg", "kg"},
		{"ky", "kg"},
		{"en-US", "en"},
		{"en_GB.UTF-8", "en"},
		{"ru-RU", "ru"},
		{"", "ru"},
		{"de", "ru"},
		{"not a locale!", "ru"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Normalize(tt.in))
		})
	}
}

func TestIsDefaultAndNext(t *testing.T) {
	s := DefaultSet()
	assert.True(t, s.IsDefault("ru"))
	assert.True(t, s.IsDefault("fr"))
	assert.False(t, s.IsDefault("en"))

	assert.Equal(t, "en", s.Next("ru"))
	assert.Equal(t, "kg", s.Next("en"))
	assert.Equal(t, "ru", s.Next("kg"))
}

func TestStoreSetNotifiesSubscribers(t *testing.T) {
	st := NewStore(DefaultSet(), "en-US")
	assert.Equal(t, "en", st.Current())

	ch, cancel := st.Subscribe()
	defer cancel()

	assert.Equal(t, "kg", st.Set("ky"))
	assert.Equal(t, "kg", <-ch)
	assert.Equal(t, "kg", st.Current())
}

func TestStoreSetIgnoresUnchanged(t *testing.T) {
	st := NewStore(DefaultSet(), "ru")
	ch, cancel := st.Subscribe()
	defer cancel()

	st.Set("ru")
	st.Set("xx") // normalizes to the default

	select {
	case v := <-ch:
		t.Fatalf("unexpected notification %q", v)
	default:
	}
}

func TestStoreSlowSubscriberSeesLatest(t *testing.T) {
	st := NewStore(DefaultSet(), "ru")
	ch, cancel := st.Subscribe()
	defer cancel()

	st.Set("en")
	st.Set("kg")

	assert.Equal(t, "kg", <-ch)
}

func TestStoreUnsubscribeClosesChannel(t *testing.T) {
	st := NewStore(DefaultSet(), "ru")
	ch, cancel := st.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	st.Set("en") // no panic on closed subscriber
}

func TestFileSourceReadsInitialAndWatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locale")
	require.NoError(t, os.WriteFile(path, []byte("en\n"), 0o600))

	fs, err := NewFileSource(DefaultSet(), path)
	require.NoError(t, err)
	assert.Equal(t, "en", fs.Current())

	ch, cancel := fs.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go fs.Run(ctx, nil)

	require.NoError(t, os.WriteFile(path, []byte("ky\n"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, "kg", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for locale change")
	}
}

func TestFileSourceMissingFileUsesDefault(t *testing.T) {
	fs, err := NewFileSource(DefaultSet(), filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, "ru", fs.Current())
	assert.NoError(t, fs.watcher.Close())
}
