package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strokeorder/strokedata"
	"strokeorder/strokes"
)

// ============================================
// Local
// ============================================

func TestLocalSource(t *testing.T) {
	table := strokedata.NewTable()
	table.Put("二", strokedata.Entry{Strokes: []string{"M 200 300 L 800 300", "M 100 700 L 900 700"}})

	src := NewLocalSource(table.Lookup)
	set, err := src.Fetch(context.Background(), "二")
	require.NoError(t, err)

	assert.Equal(t, strokes.SourceLocal, set.Source())
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, strokes.SourceLocal, src.Kind())
}

func TestLocalSourceErrors(t *testing.T) {
	table := strokedata.NewTable()
	table.Put("坏", strokedata.Entry{Strokes: []string{"Q 1 2 3 4"}})

	src := NewLocalSource(table.Lookup)

	_, err := src.Fetch(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrCharacterNotFound)

	_, err = src.Fetch(context.Background(), "坏")
	assert.ErrorIs(t, err, strokes.ErrMalformedStrokeData)

	_, err = NewLocalSource(nil).Fetch(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrSourceUnavailable)
}

// ============================================
// Remote
// ============================================

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestRemoteSourceOK(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/characters/十", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"stroke_order_json": {"strokes": ["M 100 480 L 924 480", "M 512 100 L 512 924"]}}`))
	})

	set, err := NewRemoteSource(server.URL, server.Client(), time.Second).Fetch(context.Background(), "十")
	require.NoError(t, err)
	assert.Equal(t, strokes.SourceRemote, set.Source())
	assert.Equal(t, 2, set.Len())
}

func TestRemoteSourceStringEncodedPayload(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stroke_order_json": "{\"strokes\": [\"M 0 0 L 10 0\"]}"}`))
	})

	set, err := NewRemoteSource(server.URL, server.Client(), time.Second).Fetch(context.Background(), "一")
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestRemoteSourceErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"404", http.StatusNotFound, `{"error": "not found"}`, strokes.ErrCharacterNotFound},
		{"500", http.StatusInternalServerError, `{}`, strokes.ErrNetworkFailure},
		{"JSON rotto", http.StatusOK, `{"stroke_order_json": `, strokes.ErrMalformedStrokeData},
		{"senza strokes", http.StatusOK, `{"stroke_order_json": {"medians": []}}`, strokes.ErrMalformedStrokeData},
		{"senza stroke_order_json", http.StatusOK, `{"character": "一"}`, strokes.ErrMalformedStrokeData},
		{"path curvi", http.StatusOK, `{"stroke_order_json": {"strokes": ["C 1 2 3 4 5 6"]}}`, strokes.ErrMalformedStrokeData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := NewRemoteSource(server.URL, server.Client(), time.Second).Fetch(context.Background(), "一")
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRemoteSourceTimeout(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := NewRemoteSource(server.URL, server.Client(), 20*time.Millisecond).Fetch(context.Background(), "一")
	assert.ErrorIs(t, err, strokes.ErrTimeout)
	assert.NotErrorIs(t, err, strokes.ErrNetworkFailure)
}

func TestRemoteSourceNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewRemoteSource(url, nil, time.Second).Fetch(context.Background(), "一")
	assert.ErrorIs(t, err, strokes.ErrNetworkFailure)
}

func TestRemoteSourceCallerCancel(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewRemoteSource(server.URL, server.Client(), time.Second).Fetch(ctx, "一")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteSourceNotConfigured(t *testing.T) {
	_, err := NewRemoteSource("", nil, 0).Fetch(context.Background(), "一")
	assert.ErrorIs(t, err, strokes.ErrSourceUnavailable)
}

// ============================================
// Library
// ============================================

type fakeLibrary struct {
	data  *LibraryCharacter
	err   error
	block chan struct{}
	calls atomic.Int32
}

func (fl *fakeLibrary) Load(ctx context.Context, character string) (*LibraryCharacter, error) {
	fl.calls.Add(1)
	if fl.block != nil {
		<-fl.block
	}
	return fl.data, fl.err
}

func TestLibrarySourceWrapsNativeData(t *testing.T) {
	lib := &fakeLibrary{data: &LibraryCharacter{
		// Il primo tratto ha curve: si usa la mediana
		Strokes: []string{"M 100 700 Q 500 720 900 700 Z", "M 500 800 L 500 100"},
		Medians: [][][2]float64{{{100, 700}, {900, 700}}, {{500, 800}, {500, 100}}},
	}}

	src := NewLibrarySource(StaticProber(lib), time.Second, nil)
	set, err := src.Fetch(context.Background(), "丁")
	require.NoError(t, err)
	assert.Equal(t, strokes.SourceLibrary, set.Source())

	first, _ := set.Stroke(0)
	assert.Equal(t, 200.0, first.Points[0].Y, "y ribaltata rispetto alla linea di base")
	assert.Equal(t, 900.0, first.Points[1].X)

	second, _ := set.Stroke(1)
	assert.Equal(t, []float64{100, 800}, []float64{second.Points[0].Y, second.Points[1].Y})
}

func TestLibrarySourceUndecodableWithoutMedians(t *testing.T) {
	lib := &fakeLibrary{data: &LibraryCharacter{Strokes: []string{"Q 1 2 3 4"}}}

	_, err := NewLibrarySource(StaticProber(lib), time.Second, nil).Fetch(context.Background(), "丁")
	assert.ErrorIs(t, err, strokes.ErrMalformedStrokeData)
}

func TestLibrarySourceUnavailable(t *testing.T) {
	_, err := NewLibrarySource(nil, time.Second, nil).Fetch(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrSourceUnavailable)

	_, err = NewLibrarySource(StaticProber(nil), time.Second, nil).Fetch(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrSourceUnavailable)
}

func TestLibrarySourceTimeout(t *testing.T) {
	lib := &fakeLibrary{block: make(chan struct{})}
	defer close(lib.block)

	start := time.Now()
	_, err := NewLibrarySource(StaticProber(lib), 30*time.Millisecond, nil).Fetch(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLibrarySourceProbeTimeout(t *testing.T) {
	prober := ProberFunc(func(ctx context.Context) (Library, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := NewLibrarySource(prober, 20*time.Millisecond, nil).Fetch(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrTimeout)
}

func TestLibrarySourceCachesHandle(t *testing.T) {
	var probes atomic.Int32
	lib := &fakeLibrary{data: &LibraryCharacter{Strokes: []string{"M 0 0 L 10 0"}}}
	prober := ProberFunc(func(ctx context.Context) (Library, error) {
		probes.Add(1)
		return lib, nil
	})

	src := NewLibrarySource(prober, time.Second, nil)
	for i := 0; i < 3; i++ {
		_, err := src.Fetch(context.Background(), "一")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), probes.Load())
	assert.Equal(t, int32(3), lib.calls.Load())
}

func TestCDNLibrary(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/一.json":
			w.Write([]byte(`{"strokes": ["M 100 400 L 900 400"], "medians": [[[100, 400], [900, 400]]]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	cdn := NewCDNLibrary(server.URL+"/", server.Client())
	src := NewLibrarySource(cdn, time.Second, nil)

	set, err := src.Fetch(context.Background(), "一")
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())

	_, err = src.Fetch(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrCharacterNotFound)
}

func TestCDNProbeUnavailable(t *testing.T) {
	server := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := NewCDNLibrary(server.URL, server.Client()).Probe(context.Background())
	assert.ErrorIs(t, err, strokes.ErrSourceUnavailable)
}

// ============================================
// Registry
// ============================================

func TestBuildDefaultOrder(t *testing.T) {
	list, err := Build(nil, Deps{})
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, strokes.SourceLibrary, list[0].Kind())
	assert.Equal(t, strokes.SourceLocal, list[1].Kind())
	assert.Equal(t, strokes.SourceRemote, list[2].Kind())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]string{"local", "LOCAL"}, Deps{})
	assert.Error(t, err)

	_, err = Build([]string{"cdn"}, Deps{})
	assert.Error(t, err)

	assert.True(t, IsRegistered("Remote"))
	assert.Equal(t, []string{"library", "local", "remote"}, Available())
}
