package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"strokeorder/sources"
	"strokeorder/strokedata"
	"strokeorder/strokes"
)

func mockSource(ctrl *gomock.Controller, kind strokes.Source) *MockSource {
	m := NewMockSource(ctrl)
	m.EXPECT().Kind().Return(kind).AnyTimes()
	return m
}

func sampleSet(t *testing.T, source strokes.Source) *strokes.CharacterStrokeSet {
	t.Helper()
	set, err := strokes.NewCharacterStrokeSet("水", []strokes.Stroke{
		strokes.StrokeFromPoints(0, [][2]float64{{300, 200}, {400, 300}}),
		strokes.StrokeFromPoints(1, [][2]float64{{200, 400}, {300, 500}}),
	}, source)
	require.NoError(t, err)
	return set
}

// ============================================
// Precedenza e fallback
// ============================================

func TestResolveLibraryFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	library := mockSource(ctrl, strokes.SourceLibrary)
	local := mockSource(ctrl, strokes.SourceLocal)
	remote := mockSource(ctrl, strokes.SourceRemote)

	library.EXPECT().Fetch(gomock.Any(), "水").Return(sampleSet(t, strokes.SourceLibrary), nil).Times(1)
	local.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)
	remote.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	set, err := New([]sources.Source{library, local, remote}, nil).Resolve(context.Background(), "水")
	require.NoError(t, err)
	assert.Equal(t, strokes.SourceLibrary, set.Source())
}

func TestResolveFallsBackToLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	library := mockSource(ctrl, strokes.SourceLibrary)
	local := mockSource(ctrl, strokes.SourceLocal)
	remote := mockSource(ctrl, strokes.SourceRemote)

	gomock.InOrder(
		library.EXPECT().Fetch(gomock.Any(), "水").Return(nil, fmt.Errorf("%w: 5s", strokes.ErrTimeout)),
		local.EXPECT().Fetch(gomock.Any(), "水").Return(sampleSet(t, strokes.SourceLocal), nil),
	)
	remote.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	res, err := New([]sources.Source{library, local, remote}, nil).ResolveDetailed(context.Background(), "水")
	require.NoError(t, err)
	assert.Equal(t, strokes.SourceLocal, res.Set.Source())
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, KindTimeout, res.Attempts[0].Kind)
	assert.NotEmpty(t, res.RequestID)
}

func TestResolveFallsBackToRemote(t *testing.T) {
	ctrl := gomock.NewController(t)
	library := mockSource(ctrl, strokes.SourceLibrary)
	local := mockSource(ctrl, strokes.SourceLocal)
	remote := mockSource(ctrl, strokes.SourceRemote)

	gomock.InOrder(
		library.EXPECT().Fetch(gomock.Any(), "水").Return(nil, strokes.ErrSourceUnavailable),
		local.EXPECT().Fetch(gomock.Any(), "水").Return(nil, strokes.ErrCharacterNotFound),
		remote.EXPECT().Fetch(gomock.Any(), "水").Return(sampleSet(t, strokes.SourceRemote), nil),
	)

	set, err := New([]sources.Source{library, local, remote}, nil).Resolve(context.Background(), "水")
	require.NoError(t, err)
	assert.Equal(t, strokes.SourceRemote, set.Source())
}

func TestResolveRealLibraryTimeoutThenLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mockSource(ctrl, strokes.SourceRemote)
	remote.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	// La libreria non risponde mai entro il timeout
	block := make(chan struct{})
	defer close(block)
	prober := sources.ProberFunc(func(ctx context.Context) (sources.Library, error) {
		<-block
		return nil, errors.New("troppo tardi")
	})

	table := strokedata.NewTable()
	table.Put("水", strokedata.Entry{Strokes: []string{"M 300 200 L 400 300", "M 200 400 L 300 500"}})

	list := []sources.Source{
		sources.NewLibrarySource(prober, 30*time.Millisecond, nil),
		sources.NewLocalSource(table.Lookup),
		remote,
	}

	res, err := New(list, nil).ResolveDetailed(context.Background(), "水")
	require.NoError(t, err)
	assert.Equal(t, strokes.SourceLocal, res.Set.Source())
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, KindTimeout, res.Attempts[0].Kind)
}

// ============================================
// Fallimento totale
// ============================================

func TestResolveAllFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	library := mockSource(ctrl, strokes.SourceLibrary)
	local := mockSource(ctrl, strokes.SourceLocal)
	remote := mockSource(ctrl, strokes.SourceRemote)

	library.EXPECT().Fetch(gomock.Any(), "水").Return(nil, fmt.Errorf("%w: ctx", strokes.ErrTimeout))
	local.EXPECT().Fetch(gomock.Any(), "水").Return(nil, strokes.ErrCharacterNotFound)
	remote.EXPECT().Fetch(gomock.Any(), "水").Return(nil, fmt.Errorf("%w: dial", strokes.ErrNetworkFailure))

	_, err := New([]sources.Source{library, local, remote}, nil).Resolve(context.Background(), "水")
	require.Error(t, err)
	assert.ErrorIs(t, err, strokes.ErrNoStrokeDataAvailable)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "水", exhausted.Character)

	kinds := []Kind{}
	for _, a := range exhausted.Attempts {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []Kind{KindTimeout, KindNotFound, KindNetworkFailure}, kinds)
	assert.Contains(t, err.Error(), "library: timeout")
}

func TestResolveNoSources(t *testing.T) {
	_, err := New(nil, nil).Resolve(context.Background(), "水")
	assert.ErrorIs(t, err, strokes.ErrNoStrokeDataAvailable)
}

func TestResolveInvalidCharacter(t *testing.T) {
	ctrl := gomock.NewController(t)
	library := mockSource(ctrl, strokes.SourceLibrary)
	library.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	for _, char := range []string{"", "水火"} {
		_, err := New([]sources.Source{library}, nil).Resolve(context.Background(), char)
		assert.ErrorIs(t, err, strokes.ErrCharacterNotFound)
	}
}

// ============================================
// Cancellazione
// ============================================

func TestResolveCancelledBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	library := mockSource(ctrl, strokes.SourceLibrary)
	library.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New([]sources.Source{library}, nil).Resolve(ctx, "水")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, strokes.ErrNoStrokeDataAvailable)
}

func TestResolveCancelledDuringAttemptStopsCascade(t *testing.T) {
	ctrl := gomock.NewController(t)
	library := mockSource(ctrl, strokes.SourceLibrary)
	local := mockSource(ctrl, strokes.SourceLocal)

	ctx, cancel := context.WithCancel(context.Background())
	library.EXPECT().Fetch(gomock.Any(), "水").DoAndReturn(
		func(ctx context.Context, character string) (*strokes.CharacterStrokeSet, error) {
			cancel()
			return nil, ctx.Err()
		})
	local.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	_, err := New([]sources.Source{library, local}, nil).Resolve(ctx, "水")
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================
// Classify
// ============================================

func TestClassify(t *testing.T) {
	tests := map[error]Kind{
		nil:                               "",
		strokes.ErrSourceUnavailable:      KindSourceUnavailable,
		context.DeadlineExceeded:          KindTimeout,
		strokes.ErrNetworkFailure:         KindNetworkFailure,
		strokes.ErrCharacterNotFound:      KindNotFound,
		strokes.ErrUndecodableStroke:      KindUndecodable,
		strokes.ErrMalformedStrokeData:    KindMalformed,
		errors.New("qualcosa di diverso"): KindUnknown,
	}

	for err, expected := range tests {
		assert.Equal(t, expected, Classify(err), "errore %v", err)
	}
}
