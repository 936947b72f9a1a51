package protocol

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawSetting(t *testing.T, typ string, v any) Setting {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return Setting{Type: typ, Value: data}
}

func TestDrawingBufferDropsOldestBatch(t *testing.T) {
	r := NewRoomState("test")
	for i := 0; i < DrawingBufferCap+1; i++ {
		r.AppendDrawing(Drawing{Type: DrawMove, X: FloatPtr(float64(i))})
	}
	// 1000 filled the buffer, the 1001st evicted a batch of 100 first.
	require.Equal(t, 901, r.DrawingCount())

	bulk, _ := r.Snapshot()
	assert.Equal(t, 100.0, *bulk.Drawings[0].X, "events 0-99 were dropped")
	assert.Equal(t, 1000.0, *bulk.Drawings[len(bulk.Drawings)-1].X)
}

func TestClearCompactsBufferAtAnySize(t *testing.T) {
	for _, typ := range []string{DrawClear, DrawClearAll} {
		t.Run(typ, func(t *testing.T) {
			r := NewRoomState("test")
			for i := 0; i < 5; i++ {
				r.AppendDrawing(Drawing{Type: DrawMove})
			}
			r.AppendDrawing(Drawing{Type: typ, LayerIndex: IntPtr(0)})
			require.Equal(t, 1, r.DrawingCount())

			bulk, _ := r.Snapshot()
			assert.Equal(t, typ, bulk.Drawings[0].Type)
		})
	}
}

func TestClearCompactsFullBuffer(t *testing.T) {
	r := NewRoomState("test")
	for i := 0; i < DrawingBufferCap; i++ {
		r.AppendDrawing(Drawing{Type: DrawMove})
	}
	r.AppendDrawing(Drawing{Type: DrawClearAll})
	assert.Equal(t, 1, r.DrawingCount())
}

func TestLayerLogBounded(t *testing.T) {
	r := NewRoomState("test")
	for i := 0; i < LayerLogCap+5; i++ {
		r.AppendLayerAction(LayerAction{Type: LayerAdd, Name: fmt.Sprintf("Layer %d", i)})
	}
	require.Equal(t, LayerLogCap, r.LayerActionCount())

	_, actions := r.Snapshot()
	assert.Equal(t, "Layer 5", actions.Actions[0].Name, "oldest entries evicted one at a time")
}

func TestApplySettingBuildsShadow(t *testing.T) {
	r := NewRoomState("test")
	r.ApplySetting("p1", rawSetting(t, SettingColor, "#336699"))
	r.ApplySetting("p1", rawSetting(t, SettingSize, 7.0))
	r.ApplySetting("p1", rawSetting(t, SettingBrushType, "marker"))
	r.ApplySetting("p1", rawSetting(t, SettingBlendMode, "multiply"))

	s := r.Shadow("p1")
	require.NotNil(t, s)
	assert.Equal(t, "#336699", s.Color)
	require.NotNil(t, s.Size)
	assert.Equal(t, 7.0, *s.Size)
	assert.Equal(t, "marker", s.Brush)
	assert.Equal(t, "multiply", s.BlendMode)

	assert.Nil(t, r.Shadow("p2"), "shadows are per peer")
}

func TestApplySettingClampsNumericValues(t *testing.T) {
	r := NewRoomState("test")
	r.ApplySetting("p1", rawSetting(t, SettingOpacity, 3.5))
	r.ApplySetting("p1", rawSetting(t, SettingStabilizer, 99.0))

	s := r.Shadow("p1")
	require.NotNil(t, s)
	assert.Equal(t, 1.0, *s.Opacity)
	assert.Equal(t, 20, *s.Stabilizer)

	r.ApplySetting("p1", rawSetting(t, SettingOpacity, -2.0))
	r.ApplySetting("p1", rawSetting(t, SettingStabilizer, -7.0))
	assert.Equal(t, 0.0, *s.Opacity)
	assert.Equal(t, 0, *s.Stabilizer)
}

func TestApplySettingRejectsUnknownBlendMode(t *testing.T) {
	r := NewRoomState("test")
	r.ApplySetting("p1", rawSetting(t, SettingBlendMode, "screen"))
	r.ApplySetting("p1", rawSetting(t, SettingBlendMode, "plasma"))
	assert.Equal(t, "screen", r.Shadow("p1").BlendMode, "unknown mode keeps the prior value")
}

func TestApplySettingIgnoresMalformedValues(t *testing.T) {
	r := NewRoomState("test")
	r.ApplySetting("p1", Setting{Type: SettingSize, Value: []byte(`"huge"`)})
	r.ApplySetting("p1", Setting{Type: "fontFamily", Value: []byte(`"comic"`)})
	assert.Nil(t, r.Shadow("p1").Size)
}

func TestDefaultStartFillsOmittedFields(t *testing.T) {
	r := NewRoomState("test")
	r.ApplySetting("p1", rawSetting(t, SettingColor, "#ff0000"))
	r.ApplySetting("p1", rawSetting(t, SettingSize, 9.0))
	r.ApplySetting("p1", rawSetting(t, SettingBrushType, "airbrush"))

	d := r.DefaultStart("p1", Drawing{Type: DrawStart, LayerIndex: IntPtr(0)})
	assert.Equal(t, "#ff0000", d.Color)
	require.NotNil(t, d.Size)
	assert.Equal(t, 9.0, *d.Size)
	assert.Equal(t, "airbrush", d.Brush)

	// Explicit fields on the start message win over the shadow.
	d = r.DefaultStart("p1", Drawing{Type: DrawStart, Color: "#00ff00", Size: FloatPtr(2)})
	assert.Equal(t, "#00ff00", d.Color)
	assert.Equal(t, 2.0, *d.Size)

	// Non-start messages pass through untouched.
	d = r.DefaultStart("p1", Drawing{Type: DrawMove})
	assert.Empty(t, d.Color)
}

func TestDropPeerForgetsShadow(t *testing.T) {
	r := NewRoomState("test")
	r.ApplySetting("p1", rawSetting(t, SettingColor, "#ff0000"))
	r.DropPeer("p1")
	assert.Nil(t, r.Shadow("p1"))

	d := r.DefaultStart("p1", Drawing{Type: DrawStart})
	assert.Empty(t, d.Color)
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	r := NewRoomState("test")
	r.AppendDrawing(Drawing{Type: DrawMove, X: FloatPtr(1)})
	bulk, _ := r.Snapshot()
	require.Len(t, bulk.Drawings, 1)

	r.AppendDrawing(Drawing{Type: DrawClearAll})
	assert.Len(t, bulk.Drawings, 1)
	assert.Equal(t, DrawMove, bulk.Drawings[0].Type)
}

func TestSyncEnvelopesOrderDrawingsFirst(t *testing.T) {
	r := NewRoomState("test")
	r.AppendDrawing(Drawing{Type: DrawStart, LayerIndex: IntPtr(1), X: FloatPtr(1), Y: FloatPtr(1)})
	r.AppendDrawing(Drawing{Type: DrawEnd, LayerIndex: IntPtr(1)})
	r.AppendLayerAction(LayerAction{Type: LayerRemove, Index: IntPtr(1)})

	// The layer log refers to layers the drawings create, so a joiner
	// must always replay drawings before layer actions.
	for i := 0; i < 50; i++ {
		envs, err := r.SyncEnvelopes()
		require.NoError(t, err)
		require.Len(t, envs, 2)
		require.Equal(t, KindDrawings, envs[0].Kind)
		require.Equal(t, KindLayerActions, envs[1].Kind)
	}

	envs, err := r.SyncEnvelopes()
	require.NoError(t, err)
	var bulk BulkDrawings
	require.NoError(t, json.Unmarshal(envs[0].Data, &bulk))
	assert.Len(t, bulk.Drawings, 2)
	var actions BulkLayerActions
	require.NoError(t, json.Unmarshal(envs[1].Data, &actions))
	assert.Len(t, actions.Actions, 1)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(KindDrawing, Drawing{Type: DrawStart, Color: "#123456"})
	require.NoError(t, err)

	wire, err := json.Marshal(env)
	require.NoError(t, err)

	var back Envelope
	require.NoError(t, json.Unmarshal(wire, &back))
	assert.Equal(t, KindDrawing, back.Kind)

	var d Drawing
	require.NoError(t, json.Unmarshal(back.Data, &d))
	assert.Equal(t, "#123456", d.Color)
}
