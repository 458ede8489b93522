package verses_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-tilawa/internal/apierr"
	"github.com/alnah/go-tilawa/internal/audio/audiotest"
	"github.com/alnah/go-tilawa/internal/fetch"
	"github.com/alnah/go-tilawa/internal/quran"
	"github.com/alnah/go-tilawa/internal/reciter"
	"github.com/alnah/go-tilawa/internal/reciter/recitertest"
	"github.com/alnah/go-tilawa/internal/verses"
)

// Notes:
// - The fake host serves one-second WAV files under .mp3 names; the default
//   oracle measures them through the WAV header.
// - Files listed in missing answer 404.

type audioHost struct {
	*httptest.Server
	requests atomic.Int32
}

func newAudioHost(t *testing.T, missing ...string) *audioHost {
	t.Helper()
	clip, err := os.ReadFile(audiotest.WriteWAV(t, "clip.wav", audiotest.Tone(audiotest.Format, time.Second, -20, 440)))
	require.NoError(t, err)

	h := &audioHost{}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)
		for _, m := range missing {
			if strings.HasSuffix(r.URL.Path, "/"+m) {
				http.NotFound(w, r)
				return
			}
		}
		_, _ = w.Write(clip)
	}))
	t.Cleanup(h.Close)
	return h
}

func newCoordinator(h *audioHost, opts ...verses.Option) *verses.Coordinator {
	dir := reciter.NewDirectoryFromManifest(recitertest.Manifest(recitertest.Basfar))
	client := fetch.New(
		fetch.WithInterval(0),
		fetch.WithRetryConfig(apierr.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	)
	opts = append([]verses.Option{verses.WithBaseURL(h.URL + "/data/")}, opts...)
	return verses.NewCoordinator(dir, client, opts...)
}

func ayahsOf(assets []verses.Asset) []int {
	out := make([]int, len(assets))
	for i, a := range assets {
		out[i] = a.Ayah
	}
	return out
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

func TestFetchRange_isolatesFailures(t *testing.T) {
	t.Parallel()

	h := newAudioHost(t, "001004.mp3")
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	out := t.TempDir()

	batch, err := newCoordinator(h, verses.WithLogger(logger)).
		FetchRange(context.Background(), quran.Range{ReciterID: 6, Surah: 1, StartAyah: 1, EndAyah: 7}, out)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 5, 6, 7}, ayahsOf(batch.Assets))
	for _, a := range batch.Assets {
		assert.Equal(t, filepath.Join(out, "Abdullah_Basfar_192kbps", quran.AudioFileName(1, a.Ayah)), a.Path)
		assert.FileExists(t, a.Path)
		assert.Equal(t, time.Second, a.RawDuration)
		assert.False(t, a.Cached)
	}

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, 4, batch.Failures[0].Ayah)
	assert.ErrorIs(t, batch.Failures[0], apierr.ErrNotFound)
	assert.Contains(t, logs.String(), "ayah=4")
	assert.Contains(t, logs.String(), "level=WARN")

	leftovers, err := filepath.Glob(filepath.Join(out, "Abdullah_Basfar_192kbps", ".*.part"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetchRange_reusesFilesOnDisk(t *testing.T) {
	t.Parallel()

	h := newAudioHost(t)
	c := newCoordinator(h)
	out := t.TempDir()
	r := quran.Range{ReciterID: 6, Surah: 112, StartAyah: 1, EndAyah: 4}

	_, err := c.FetchRange(context.Background(), r, out)
	require.NoError(t, err)
	require.Equal(t, int32(4), h.requests.Load())

	batch, err := c.FetchRange(context.Background(), r, out)
	require.NoError(t, err)
	assert.Equal(t, int32(4), h.requests.Load())
	require.Len(t, batch.Assets, 4)
	for _, a := range batch.Assets {
		assert.True(t, a.Cached)
	}
}

func TestFetchRange_concurrentCallersShareDownloads(t *testing.T) {
	t.Parallel()

	h := newAudioHost(t)
	c := newCoordinator(h, verses.WithWorkers(3))
	out := t.TempDir()
	r := quran.Range{ReciterID: 6, Surah: 1, StartAyah: 1, EndAyah: 7}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch, err := c.FetchRange(context.Background(), r, out)
			assert.NoError(t, err)
			assert.Len(t, batch.Assets, 7)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(7), h.requests.Load())
}

func TestFetchRange_cancelledCallerDoesNotFailSharedDownload(t *testing.T) {
	t.Parallel()

	clip, err := os.ReadFile(audiotest.WriteWAV(t, "clip.wav", audiotest.Tone(audiotest.Format, time.Second, -20, 440)))
	require.NoError(t, err)

	// The first request hangs until its client goes away.
	started := make(chan struct{})
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			close(started)
			<-r.Context().Done()
			return
		}
		_, _ = w.Write(clip)
	}))
	t.Cleanup(srv.Close)

	c := verses.NewCoordinator(
		reciter.NewDirectoryFromManifest(recitertest.Manifest(recitertest.Basfar)),
		fetch.New(fetch.WithInterval(0), fetch.WithRetryConfig(apierr.RetryConfig{MaxRetries: 0})),
		verses.WithBaseURL(srv.URL+"/data"),
	)
	r := quran.Range{ReciterID: 6, Surah: 112, StartAyah: 1, EndAyah: 1}
	out := t.TempDir()

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.FetchRange(first, r, out)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		batch verses.Batch
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		batch, err := c.FetchRange(context.Background(), r, out)
		second <- outcome{batch, err}
	}()
	// Give the second caller time to join the download in flight.
	time.Sleep(50 * time.Millisecond)
	cancelFirst()

	assert.ErrorIs(t, <-firstErr, context.Canceled)

	got := <-second
	require.NoError(t, got.err)
	assert.Empty(t, got.batch.Failures)
	require.Len(t, got.batch.Assets, 1)
	assert.FileExists(t, got.batch.Assets[0].Path)
	assert.Equal(t, int32(2), requests.Load())
}

func TestFetchRange_allMissingIsEmptyBatch(t *testing.T) {
	t.Parallel()

	h := newAudioHost(t, "112001.mp3", "112002.mp3", "112003.mp3", "112004.mp3")
	batch, err := newCoordinator(h).
		FetchRange(context.Background(), quran.Range{ReciterID: 6, Surah: 112, StartAyah: 1, EndAyah: 4}, t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, batch.Assets)
	require.Len(t, batch.Failures, 4)
	for i, f := range batch.Failures {
		assert.Equal(t, i+1, f.Ayah)
		assert.ErrorIs(t, f, apierr.ErrNotFound)
	}
}

func TestFetchRange_text(t *testing.T) {
	t.Parallel()

	idx := quran.NewTextIndex()
	for ayah := 1; ayah <= 3; ayah++ {
		if ayah == 2 {
			continue
		}
		idx.Add(103, ayah, quran.VerseText{SuraNameEn: "Al-Asr", AyaText: "text"})
	}

	h := newAudioHost(t)
	batch, err := newCoordinator(h, verses.WithTextLookup(idx)).
		FetchRange(context.Background(), quran.Range{ReciterID: 6, Surah: 103, StartAyah: 1, EndAyah: 3}, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, ayahsOf(batch.Assets))
	assert.Equal(t, "Al-Asr", batch.Assets[0].Text.SuraNameEn)
	require.Len(t, batch.Failures, 1)
	assert.ErrorIs(t, batch.Failures[0], verses.ErrMissingText)
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestFetchRange_validatesBeforeDownloading(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		r    quran.Range
		want error
	}{
		"past last ayah":  {quran.Range{ReciterID: 6, Surah: 1, StartAyah: 1, EndAyah: 8}, reciter.ErrInvalidVerseRange},
		"surah 115":       {quran.Range{ReciterID: 6, Surah: 115, StartAyah: 1, EndAyah: 1}, reciter.ErrInvalidVerseRange},
		"reversed":        {quran.Range{ReciterID: 6, Surah: 2, StartAyah: 5, EndAyah: 4}, reciter.ErrInvalidVerseRange},
		"unknown reciter": {quran.Range{ReciterID: 99, Surah: 1, StartAyah: 1, EndAyah: 7}, reciter.ErrUnknownReciter},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newAudioHost(t)
			_, err := newCoordinator(h).FetchRange(context.Background(), tt.r, t.TempDir())
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.requests.Load())
		})
	}
}

func TestFetchRange_cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newAudioHost(t)
	_, err := newCoordinator(h).FetchRange(ctx, quran.Range{ReciterID: 6, Surah: 1, StartAyah: 1, EndAyah: 7}, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
