package grid

import (
	"testing"

	"pixelgrid/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RoutesCommands(t *testing.T) {
	d := NewDispatcher()
	s := newTestSession(t, nil)

	res, err := d.Dispatch(s, Command{Kind: CmdPointerDown, Point: Point{X: 2, Y: 3}})
	require.NoError(t, err)
	assert.Len(t, res.Changes, 1)
	assert.True(t, res.StatusChanged)

	res, err = d.Dispatch(s, Command{Kind: CmdPointerMove, Point: Point{X: 2.5, Y: 3.5}})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.False(t, res.StatusChanged)

	_, err = d.Dispatch(s, Command{Kind: CmdPointerUp})
	require.NoError(t, err)
	assert.False(t, s.Dragging())

	res, err = d.Dispatch(s, Command{Kind: CmdTool, Tool: Eraser})
	require.NoError(t, err)
	assert.True(t, res.ToolChanged)
	assert.Equal(t, Eraser, s.Tool())

	res, err = d.Dispatch(s, Command{Kind: CmdKey, Key: "ArrowUp"})
	require.NoError(t, err)
	assert.True(t, res.ViewportChanged)

	res, err = d.Dispatch(s, Command{Kind: CmdClear})
	require.NoError(t, err)
	assert.Equal(t, ChangeClear, res.Changes[0].Kind)
}

func TestDispatcher_ZoomOutReportsClamp(t *testing.T) {
	d := NewDispatcher()
	s := newTestSession(t, nil)

	res, err := d.Dispatch(s, Command{Kind: CmdZoomOut})
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Greater(t, s.Transform().Scale, 0.0)

	res, err = d.Dispatch(s, Command{Kind: CmdZoomIn})
	require.NoError(t, err)
	assert.False(t, res.Clamped)
}

func TestDispatcher_Errors(t *testing.T) {
	d := NewDispatcher()
	s := newTestSession(t, nil)

	_, err := d.Dispatch(s, Command{Kind: "fly"})
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = d.Dispatch(s, Command{Kind: CmdColor, Color: "??"})
	assert.ErrorIs(t, err, domain.ErrInvalidColor)

	_, err = d.Dispatch(s, Command{Kind: CmdLoadPoints})
	assert.Error(t, err)
}

func TestDispatcher_RegisterOverrides(t *testing.T) {
	d := NewDispatcher()
	s := newTestSession(t, nil)
	called := false
	d.Register(CmdClear, func(*Session, Command) (Result, error) {
		called = true
		return Result{}, nil
	})
	_, err := d.Dispatch(s, Command{Kind: CmdClear})
	require.NoError(t, err)
	assert.True(t, called)
}
