package tool

import (
	"context"
	"errors"
	"testing"

	sylvaErrors "github.com/harunnryd/sylva/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CallTool(ctx context.Context, name string, args map[string]any, identity string) (any, error) {
	ret := m.Called(ctx, name, args, identity)
	return ret.Get(0), ret.Error(1)
}

func (m *mockBackend) ReadResource(ctx context.Context, uri string) (string, error) {
	ret := m.Called(ctx, uri)
	return ret.String(0), ret.Error(1)
}

func newTestDispatcher(b Backend) *Dispatcher {
	return NewDispatcher(DefaultCatalog(), b, DispatcherOptions{LayoutExtraction: true})
}

func TestDispatch_UnknownToolMakesNoCall(t *testing.T) {
	b := &mockBackend{}
	d := newTestDispatcher(b)

	out := d.Dispatch(context.Background(), "delete_everything", map[string]any{}, "user-token")

	require.True(t, out.Failed())
	assert.True(t, errors.Is(out.Err, sylvaErrors.ErrUnknownTool))
	b.AssertNotCalled(t, "CallTool", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_ObservationsEncodesFiltersAndForwardsIdentity(t *testing.T) {
	b := &mockBackend{}
	b.On("CallTool", mock.Anything, NameObservations, map[string]any{
		"filters":       `{"cd_nom":[60612]}`,
		"limit":         10,
		"output_format": "grouped_geom",
		"api_token":     "user-token",
	}, "user-token").Return(map[string]any{"type": "FeatureCollection", "features": []any{}}, nil)

	d := newTestDispatcher(b)
	out := d.Dispatch(context.Background(), NameObservations, map[string]any{
		"filters":       map[string]any{"cd_nom": []any{float64(60612)}},
		"limit":         float64(10),
		"output_format": "grouped_geom",
	}, "user-token")

	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, "FeatureCollection", out.Value.(map[string]any)["type"])
	b.AssertExpectations(t)
}

func TestDispatch_ObservationsAcceptsEncodedFilters(t *testing.T) {
	b := &mockBackend{}
	b.On("CallTool", mock.Anything, NameObservations, map[string]any{
		"filters":   `{"cd_nom":[60612]}`,
		"api_token": "user-token",
	}, "user-token").Return(map[string]any{"type": "FeatureCollection"}, nil)

	out := newTestDispatcher(b).Dispatch(context.Background(), NameObservations, map[string]any{
		"filters": ` {"cd_nom": [60612]} `,
	}, "user-token")

	require.False(t, out.Failed(), "%v", out.Err)
	b.AssertExpectations(t)
}

func TestDispatch_EncodedObjectMustBeJSON(t *testing.T) {
	b := &mockBackend{}

	out := newTestDispatcher(b).Dispatch(context.Background(), NameGeoInfo, map[string]any{
		"geometry": "POINT(6.1 45.2)",
	}, "")

	require.True(t, out.Failed())
	assert.True(t, errors.Is(out.Err, sylvaErrors.ErrToolExecution))
	b.AssertNotCalled(t, "CallTool", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_GeoInfoEncodesGeometry(t *testing.T) {
	b := &mockBackend{}
	b.On("CallTool", mock.Anything, NameGeoInfo, mock.MatchedBy(func(args map[string]any) bool {
		return args["geometry"] == `{"coordinates":[6.1,45.2],"type":"Point"}` && args["area_type"] == "COM"
	}), "").Return(map[string]any{"areas": []any{}, "altitude": map[string]any{"min": 210}}, nil)

	d := newTestDispatcher(b)
	out := d.Dispatch(context.Background(), NameGeoInfo, map[string]any{
		"geometry":  map[string]any{"type": "Point", "coordinates": []any{6.1, 45.2}},
		"area_type": "COM",
	}, "")

	require.False(t, out.Failed(), "%v", out.Err)
	b.AssertExpectations(t)
}

func TestDispatch_InvalidArgumentsMakeNoCall(t *testing.T) {
	b := &mockBackend{}
	d := newTestDispatcher(b)

	out := d.Dispatch(context.Background(), NameGeoInfo, map[string]any{"area_type": "COM"}, "")

	require.True(t, out.Failed())
	assert.True(t, errors.Is(out.Err, sylvaErrors.ErrToolExecution))
	assert.Contains(t, out.Err.Error(), "geometry")
	b.AssertNotCalled(t, "CallTool", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_ReportLayoutShaping(t *testing.T) {
	tests := []struct {
		name       string
		layout     any
		userText   string
		wantLayout any
	}{
		{
			name:       "object is canonicalized",
			layout:     map[string]any{"summary": "s", "header": "h"},
			wantLayout: `{"header":"h","summary":"s"}`,
		},
		{
			name:       "string is forwarded",
			layout:     `{"header":"déjà encodé"}`,
			wantLayout: `{"header":"déjà encodé"}`,
		},
		{
			name:       "non-object is dropped",
			layout:     float64(42),
			userText:   `{"header":"ignored"}`,
			wantLayout: nil,
		},
		{
			name:       "extracted from user text",
			userText:   `Rapport PDF stp avec {"notes": ["a"], "header": "Lynx"}`,
			wantLayout: `{"header":"Lynx","notes":["a"]}`,
		},
		{
			name:       "no layout anywhere",
			userText:   "Rapport PDF stp",
			wantLayout: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBackend{}
			b.On("CallTool", mock.Anything, NameReport, mock.MatchedBy(func(args map[string]any) bool {
				got, present := args["layout"]
				if tt.wantLayout == nil {
					return !present && args["format"] == "pdf"
				}
				return got == tt.wantLayout && args["format"] == "pdf"
			}), "tok").Return(map[string]any{"url": "https://minio.example/r.pdf"}, nil)

			args := map[string]any{"format": "pdf"}
			if tt.layout != nil {
				args["layout"] = tt.layout
			}

			ctx := WithUserText(context.Background(), tt.userText)
			out := newTestDispatcher(b).Dispatch(ctx, NameReport, args, "tok")

			require.False(t, out.Failed(), "%v", out.Err)
			b.AssertExpectations(t)
			// the caller's map is left untouched
			if tt.layout != nil {
				assert.Equal(t, tt.layout, args["layout"])
			}
		})
	}
}

func TestDispatch_ResponseShapeMismatch(t *testing.T) {
	b := &mockBackend{}
	b.On("CallTool", mock.Anything, NameObservations, mock.Anything, "tok").Return([]any{"a", "b"}, nil)

	out := newTestDispatcher(b).Dispatch(context.Background(), NameObservations, map[string]any{}, "tok")

	require.True(t, out.Failed())
	assert.True(t, errors.Is(out.Err, sylvaErrors.ErrToolExecution))
}

func TestDispatch_ListDocsNormalizesBlockCount(t *testing.T) {
	tests := []struct {
		name   string
		answer any
		want   []any
	}{
		{name: "no content", answer: nil, want: []any{}},
		{name: "single entry", answer: map[string]any{"path": "a.md"}, want: []any{map[string]any{"path": "a.md"}}},
		{name: "single text", answer: "a.md", want: []any{"a.md"}},
		{name: "already a list", answer: []any{"a.md", "b.md"}, want: []any{"a.md", "b.md"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBackend{}
			b.On("CallTool", mock.Anything, NameListDocs, mock.Anything, "").Return(tt.answer, nil)

			out := newTestDispatcher(b).Dispatch(context.Background(), NameListDocs, map[string]any{}, "tok")

			require.False(t, out.Failed(), "%v", out.Err)
			assert.Equal(t, tt.want, out.Value)
		})
	}
}

func TestDispatch_ListDocsDefaultsAndNoIdentity(t *testing.T) {
	b := &mockBackend{}
	b.On("CallTool", mock.Anything, NameListDocs, map[string]any{"query": "oiseaux", "limit": DefaultDocsListLimit}, "").
		Return([]any{map[string]any{"path": "a.md"}, map[string]any{"path": "b.md"}}, nil)

	out := newTestDispatcher(b).Dispatch(context.Background(), NameListDocs, map[string]any{"query": "oiseaux"}, "user-token")

	require.False(t, out.Failed(), "%v", out.Err)
	assert.Len(t, out.Value, 2)
	b.AssertExpectations(t)
}

func TestDispatch_ReadDocIsCached(t *testing.T) {
	b := &mockBackend{}
	b.On("CallTool", mock.Anything, NameReadDoc, map[string]any{"target": "install.md", "as_text": true}, "").
		Return(map[string]any{"content": "# Installation"}, nil).Once()

	d := newTestDispatcher(b)
	for i := 0; i < 2; i++ {
		out := d.Dispatch(context.Background(), NameReadDoc, map[string]any{"target": "install.md"}, "")
		require.False(t, out.Failed(), "%v", out.Err)
		assert.Equal(t, "# Installation", out.Value.(map[string]any)["content"])
	}
	b.AssertNumberOfCalls(t, "CallTool", 1)
}

func TestDispatch_ReadDocResourceURI(t *testing.T) {
	b := &mockBackend{}
	b.On("ReadResource", mock.Anything, "docs://admin/install.md").Return("# Admin", nil).Once()

	d := newTestDispatcher(b)
	out := d.Dispatch(context.Background(), NameReadDoc, map[string]any{"target": "docs://admin/install.md"}, "")
	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, "# Admin", out.Value.(map[string]any)["content"])

	out = d.Dispatch(context.Background(), NameReadDoc, map[string]any{"target": "docs://admin/install.md", "as_text": false}, "")
	require.False(t, out.Failed(), "%v", out.Err)
	b.AssertExpectations(t)
	b.AssertNotCalled(t, "CallTool", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_BackendFailureIsCaptured(t *testing.T) {
	b := &mockBackend{}
	b.On("CallTool", mock.Anything, NameObservations, mock.Anything, "").
		Return(nil, sylvaErrors.ToolExecution("Outil fetch_synthese_for_web a renvoyé une erreur: 403"))

	out := newTestDispatcher(b).Dispatch(context.Background(), NameObservations, nil, "")

	require.True(t, out.Failed())
	assert.Contains(t, out.Err.Error(), "403")
}
