package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M-Chimiste/DCSOlympus/internal/area"
	"github.com/M-Chimiste/DCSOlympus/internal/contextmenu"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

type fakeOperator struct {
	clicks    []string
	keys      []string
	areas     []core.Coalition
	menuID    uint64
	coalition core.Coalition
	mode      core.CommandMode
}

func (f *fakeOperator) HandleClick(eventName, params string) ([]any, error) {
	f.clicks = append(f.clicks, eventName+" "+params)
	if eventName == "bogus" {
		return nil, errors.New("unknown command")
	}
	return []any{contextmenu.Applied}, nil
}

func (f *fakeOperator) HandleKey(code string) (bool, error) {
	f.keys = append(f.keys, code)
	return code == "KeyL", nil
}

func (f *fakeOperator) AddArea(vertices []core.LatLng, coalition core.Coalition) (*area.CoalitionArea, error) {
	f.areas = append(f.areas, coalition)
	return area.NewCoalitionArea(uint64(len(f.areas)), vertices, coalition)
}

func (f *fakeOperator) OpenAreaMenu(id uint64, x, y int, latlng core.LatLng) (contextmenu.Result, error) {
	f.menuID = id
	return contextmenu.Applied, nil
}

func (f *fakeOperator) SetActiveCoalition(c core.Coalition) error {
	f.coalition = c
	return nil
}

func (f *fakeOperator) SetCommandMode(mode core.CommandMode) error {
	f.mode = mode
	return nil
}

func TestReadCommands(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"",
		"area red [[42,41],[42,41.5],[41.5,41.5]]",
		"menu 1 100 200 41.7,41.2",
		"click contextMenuCreateIads",
		`click coalitionAreaContextMenuShow {"type":"iads"}`,
		"key KeyL",
		"key KeyQ",
		"coalition red",
		"mode gm",
		"click bogus",
		"teleport",
	}, "\n")

	op := &fakeOperator{}
	var out bytes.Buffer
	require.NoError(t, readCommands(context.Background(), strings.NewReader(input), &out, op))

	assert.Equal(t, []core.Coalition{core.CoalitionRed}, op.areas)
	assert.Equal(t, uint64(1), op.menuID)
	assert.Equal(t, []string{"contextMenuCreateIads ", `coalitionAreaContextMenuShow {"type":"iads"}`, "bogus "}, op.clicks)
	assert.Equal(t, []string{"KeyL", "KeyQ"}, op.keys)
	assert.Equal(t, core.CoalitionRed, op.coalition)
	assert.Equal(t, core.GameMaster, op.mode)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"area 1",
		"applied",
		"applied",
		"applied",
		"ok",
		"unbound key KeyQ",
		"ok",
		"ok",
		"error: unknown command",
		`error: unknown command "teleport"`,
	}, lines)
}

func TestReadCommands_BadInput(t *testing.T) {
	op := &fakeOperator{}
	var out bytes.Buffer
	input := "area blue [[1,2]]\nmenu one 1 2 3,4\nmenu 1 2\n"
	require.NoError(t, readCommands(context.Background(), strings.NewReader(input), &out, op))

	assert.Empty(t, op.areas)
	assert.Zero(t, op.menuID)
	assert.Equal(t, 3, strings.Count(out.String(), "error:"))
}

func TestRun_Version(t *testing.T) {
	assert.NoError(t, run([]string{"--version"}))
}

func TestRun_BadFlag(t *testing.T) {
	assert.Error(t, run([]string{"--no-such-flag"}))
}
