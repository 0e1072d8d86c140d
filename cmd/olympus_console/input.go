package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/M-Chimiste/DCSOlympus/internal/area"
	"github.com/M-Chimiste/DCSOlympus/internal/contextmenu"
	"github.com/M-Chimiste/DCSOlympus/internal/geo"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// operator is the part of the console driven from the input line.
type operator interface {
	HandleClick(eventName, params string) ([]any, error)
	HandleKey(code string) (bool, error)
	AddArea(vertices []core.LatLng, coalition core.Coalition) (*area.CoalitionArea, error)
	OpenAreaMenu(id uint64, x, y int, latlng core.LatLng) (contextmenu.Result, error)
	SetActiveCoalition(c core.Coalition) error
	SetCommandMode(mode core.CommandMode) error
}

// readCommands executes one command per line until r is exhausted or ctx is done:
//
//	key <code>
//	click <eventName> [paramsJSON]
//	area <red|blue> <[[lat,lng],...]>
//	menu <areaID> <x> <y> <lat,lng>
//	coalition <red|blue|neutral>
//	mode <command mode>
func readCommands(ctx context.Context, r io.Reader, w io.Writer, op operator) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out, err := execLine(op, line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(w, out)
	}
	return scanner.Err()
}

func execLine(op operator, line string) (string, error) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "key":
		handled, err := op.HandleKey(rest)
		if err != nil {
			return "", err
		}
		if !handled {
			return "unbound key " + rest, nil
		}
		return "ok", nil

	case "click":
		name, params, _ := strings.Cut(rest, " ")
		results, err := op.HandleClick(name, strings.TrimSpace(params))
		if err != nil {
			return "", err
		}
		return fmt.Sprint(results...), nil

	case "area":
		coalition, vertices, _ := strings.Cut(rest, " ")
		vs, err := geo.ParseVertices(strings.TrimSpace(vertices))
		if err != nil {
			return "", err
		}
		a, err := op.AddArea(vs, core.Coalition(coalition))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("area %d", a.ID()), nil

	case "menu":
		fields := strings.Fields(rest)
		if len(fields) != 4 {
			return "", fmt.Errorf("usage: menu <areaID> <x> <y> <lat,lng>")
		}
		id, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return "", fmt.Errorf("area id: %w", err)
		}
		x, err := strconv.Atoi(fields[1])
		if err != nil {
			return "", fmt.Errorf("x: %w", err)
		}
		y, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", fmt.Errorf("y: %w", err)
		}
		ll, err := geo.LatLngFromString(fields[3])
		if err != nil {
			return "", err
		}
		res, err := op.OpenAreaMenu(id, x, y, ll)
		if err != nil {
			return "", err
		}
		return res.String(), nil

	case "coalition":
		if err := op.SetActiveCoalition(core.Coalition(rest)); err != nil {
			return "", err
		}
		return "ok", nil

	case "mode":
		if err := op.SetCommandMode(core.ParseCommandMode(rest)); err != nil {
			return "", err
		}
		return "ok", nil
	}
	return "", fmt.Errorf("unknown command %q", verb)
}
