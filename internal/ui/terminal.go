// Package ui is the terminal presentation surface for the chat command. It
// renders transcript deltas and translates typed input into controller
// events; all conversation logic lives in the flow package.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urbanalert/internal/flow"
	"github.com/urbanalert/internal/stats"
	"github.com/urbanalert/pkg/models"
)

// Terminal renders the conversation on out and reads citizen input from in
type Terminal struct {
	ctrl     *flow.Controller
	in       *bufio.Scanner
	out      io.Writer
	rendered int // transcript entries already printed
}

func NewTerminal(ctrl *flow.Controller, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		ctrl: ctrl,
		in:   bufio.NewScanner(in),
		out:  out,
	}
}

// Run drives the conversation until input ends
func (t *Terminal) Run(ctx context.Context) error {
	t.ctrl.Start(ctx)
	t.render()

	for {
		fmt.Fprint(t.out, "> ")
		if !t.in.Scan() {
			return t.in.Err()
		}
		line := strings.TrimSpace(t.in.Text())
		if line == "" {
			continue
		}
		if line == "sair" {
			return nil
		}

		t.dispatch(ctx, line)
		t.render()
	}
}

// dispatch maps a typed line onto the controller event the current step
// expects
func (t *Terminal) dispatch(ctx context.Context, line string) {
	snap := t.ctrl.Snapshot()

	if snap.Surface == flow.SurfaceDashboard {
		if line == "voltar" {
			t.ctrl.ShowChat()
		} else {
			t.renderDashboard(snap.Reports)
		}
		return
	}

	switch snap.Step {
	case flow.StepCategory, flow.StepSubcategory, flow.StepCompleted:
		if value, ok := pickOption(snap.Transcript, line); ok {
			t.ctrl.HandleQuickReply(ctx, value)
			return
		}
		t.ctrl.HandleText(ctx, line, "")

	case flow.StepDescription, flow.StepLocationText:
		t.ctrl.HandleText(ctx, line, "")

	case flow.StepLocationMethod:
		switch strings.ToLower(line) {
		case "1", "gps":
			t.ctrl.HandleLocationMethod(ctx, flow.LocationGPS)
		case "2", "mapa":
			t.ctrl.HandleLocationMethod(ctx, flow.LocationMap)
		case "3", "endereco", "endereço":
			t.ctrl.HandleLocationMethod(ctx, flow.LocationText)
		default:
			fmt.Fprintln(t.out, "Escolha 1 (GPS), 2 (mapa) ou 3 (descrever o local).")
		}

	case flow.StepLocationMap:
		if strings.EqualFold(line, "cancelar") {
			t.ctrl.HandleMapCancel()
			return
		}
		if coord, ok := parseCoordinate(line); ok {
			t.ctrl.HandleMapPick(ctx, coord)
			return
		}
		fmt.Fprintln(t.out, "Digite as coordenadas como lat,lng (ex.: -12.97,-38.50) ou 'cancelar'.")
	}
}

// render prints transcript entries added since the last call
func (t *Terminal) render() {
	snap := t.ctrl.Snapshot()

	for _, msg := range snap.Transcript[t.rendered:] {
		prefix := "[bot]"
		if msg.Sender == models.SenderUser {
			prefix = "[você]"
		}
		fmt.Fprintf(t.out, "%s %s\n", prefix, msg.Text)

		for i, qr := range msg.QuickReplies {
			fmt.Fprintf(t.out, "  %d. %s\n", i+1, qr.Label)
		}
		if msg.LocationPrompt {
			fmt.Fprintln(t.out, "  1. Usar meu GPS")
			fmt.Fprintln(t.out, "  2. Marcar no mapa")
			fmt.Fprintln(t.out, "  3. Descrever o local")
		}
	}
	t.rendered = len(snap.Transcript)

	if snap.Surface == flow.SurfaceDashboard {
		t.renderDashboard(snap.Reports)
		fmt.Fprintln(t.out, "(digite 'voltar' para continuar a conversa)")
	}
	if snap.Step == flow.StepLocationMap && snap.MapOpen {
		fmt.Fprintln(t.out, "[mapa] Digite as coordenadas como lat,lng ou 'cancelar'.")
	}
}

// renderDashboard prints the aggregate views inline
func (t *Terminal) renderDashboard(reports []models.Report) {
	kpis := stats.Summary(reports)
	fmt.Fprintf(t.out, "== Painel de ocorrências ==\n")
	fmt.Fprintf(t.out, "Total: %d | Críticas: %d | Gravidade média: %s\n",
		kpis.Total, kpis.Critical, kpis.AvgSeverity)

	for _, row := range stats.NeighborhoodRisks(reports) {
		fmt.Fprintf(t.out, "  %-20s %d ocorrência(s), gravidade média %.1f\n",
			row.Neighborhood, row.Count, row.MeanSeverity)
	}
	for _, bar := range stats.CategoryHistogram(reports) {
		fmt.Fprintf(t.out, "  %-25s %d\n", bar.Category, bar.Count)
	}
}

// pickOption resolves a typed number against the most recent quick-reply
// prompt in the transcript
func pickOption(transcript []models.Message, line string) (string, bool) {
	n, err := strconv.Atoi(line)
	if err != nil {
		return "", false
	}

	for i := len(transcript) - 1; i >= 0; i-- {
		replies := transcript[i].QuickReplies
		if len(replies) == 0 {
			continue
		}
		if n < 1 || n > len(replies) {
			return "", false
		}
		return replies[n-1].Value, true
	}
	return "", false
}

func parseCoordinate(line string) (models.Coordinate, bool) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return models.Coordinate{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return models.Coordinate{}, false
	}
	return models.Coordinate{Lat: lat, Lng: lng}, true
}
