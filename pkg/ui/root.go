// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/binkynet/MotorControl/pkg/service/motors"
)

const (
	// Speed change per up/down key press
	speedStep = 10
	barWidth  = 40
)

// Service used by the UI.
type Service interface {
	// Motors returns the motor service.
	Motors() motors.Service
	// StartedAt returns the time the service was created.
	StartedAt() time.Time
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	normalStyle   = lipgloss.NewStyle()
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type Root struct {
	ctx      context.Context
	service  Service
	updates  <-chan motors.Status
	statuses []motors.Status
	selected int
	bar      progress.Model
	now      time.Time
	lastErr  string
	width    int
	height   int
}

var _ tea.Model = Root{}

// NewRoot creates the root model of the UI.
// Status changes must be sent into the given channel.
func NewRoot(ctx context.Context, service Service, updates <-chan motors.Status) Root {
	return Root{
		ctx:      ctx,
		service:  service,
		updates:  updates,
		statuses: service.Motors().Statuses(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
		now:      time.Now(),
	}
}

// Run the UI until the user quits or the given context is canceled.
func Run(ctx context.Context, service Service) error {
	updates, unsubscribe := subscribeUpdates(service.Motors())
	defer unsubscribe()
	p := tea.NewProgram(NewRoot(ctx, service, updates), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return tea.Batch(waitForStatus(r.updates), doTick())
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		r.now = time.Time(msg)
		r.statuses = r.service.Motors().Statuses()
		r = r.clampSelection()
		return r, doTick()
	case statusMsg:
		r = r.applyStatus(motors.Status(msg))
		return r, waitForStatus(r.updates)
	case commandResultMsg:
		if msg.err != nil {
			r.lastErr = msg.err.Error()
		} else {
			r.lastErr = ""
			r = r.applyStatus(msg.status)
		}
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "tab":
			if len(r.statuses) > 0 {
				r.selected = (r.selected + 1) % len(r.statuses)
			}
		case "shift+tab":
			if len(r.statuses) > 0 {
				r.selected = (r.selected + len(r.statuses) - 1) % len(r.statuses)
			}
		case "up", "k":
			return r, r.setSpeedCmd(speedStep)
		case "down", "j":
			return r, r.setSpeedCmd(-speedStep)
		case "s":
			return r, r.commandCmd(r.service.Motors().Stop)
		case "b":
			return r, r.commandCmd(r.service.Motors().Brake)
		}
	}
	return r, nil
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	var sb strings.Builder
	sb.WriteString(r.headerView())
	sb.WriteString("\n\n")
	if len(r.statuses) == 0 {
		sb.WriteString("No motors configured\n")
	}
	for i, st := range r.statuses {
		style := normalStyle
		marker := "  "
		if i == r.selected {
			style = selectedStyle
			marker = "> "
		}
		state := fmt.Sprintf("%4d", st.Speed)
		if st.Braking {
			state = "BRK"
		}
		line := fmt.Sprintf("%s%-12s %-12s %s %s  %s cmds",
			marker, st.ID, st.Mode, directionOf(st), r.bar.ViewAs(speedPercent(st.Speed)), humanize.Comma(int64(st.Commands)))
		sb.WriteString(style.Render(line))
		sb.WriteString(" " + state)
		if st.LastError != "" {
			sb.WriteString(" " + errorStyle.Render(st.LastError))
		}
		sb.WriteString("\n")
	}
	if r.lastErr != "" {
		sb.WriteString("\n" + errorStyle.Render(r.lastErr) + "\n")
	}
	sb.WriteString("\n" + helpStyle.Render("tab/shift+tab select - up/k faster - down/j slower - s stop - b brake - q quit") + "\n")
	return sb.String()
}

func (r Root) headerView() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("BinkyNet motor control"),
		"  started ",
		humanize.RelTime(r.service.StartedAt(), r.now, "ago", "from now"),
	)
}

// selectedID returns the ID of the selected motor, or false if there are none.
func (r Root) selectedID() (string, bool) {
	if r.selected < 0 || r.selected >= len(r.statuses) {
		return "", false
	}
	return r.statuses[r.selected].ID, true
}

func (r Root) applyStatus(st motors.Status) Root {
	statuses := append([]motors.Status(nil), r.statuses...)
	for i := range statuses {
		if statuses[i].ID == st.ID {
			statuses[i] = st
			r.statuses = statuses
			return r
		}
	}
	return r
}

func (r Root) clampSelection() Root {
	if r.selected >= len(r.statuses) {
		r.selected = len(r.statuses) - 1
	}
	if r.selected < 0 {
		r.selected = 0
	}
	return r
}

func (r Root) setSpeedCmd(delta int) tea.Cmd {
	id, ok := r.selectedID()
	if !ok {
		return nil
	}
	speed := r.statuses[r.selected].Speed + delta
	ms := r.service.Motors()
	ctx := r.ctx
	return func() tea.Msg {
		st, err := ms.SetSpeed(ctx, id, speed)
		return commandResultMsg{status: st, err: err}
	}
}

func (r Root) commandCmd(fn func(context.Context, string) (motors.Status, error)) tea.Cmd {
	id, ok := r.selectedID()
	if !ok {
		return nil
	}
	ctx := r.ctx
	return func() tea.Msg {
		st, err := fn(ctx, id)
		return commandResultMsg{status: st, err: err}
	}
}

func directionOf(st motors.Status) string {
	switch {
	case st.Speed > 0:
		return "fwd"
	case st.Speed < 0:
		return "rev"
	default:
		return "---"
	}
}

func speedPercent(speed int) float64 {
	if speed < 0 {
		speed = -speed
	}
	return float64(speed) / 100
}

type tickMsg time.Time

type statusMsg motors.Status

type commandResultMsg struct {
	status motors.Status
	err    error
}

// subscribeUpdates forwards motor status updates into a channel.
// The returned function ends the subscription and closes the channel,
// which ends a pending waitForStatus.
func subscribeUpdates(ms motors.Service) (<-chan motors.Status, func()) {
	var (
		mutex  sync.Mutex
		closed bool
	)
	updates := make(chan motors.Status, 64)
	unsubscribe := ms.Subscribe(func(st motors.Status) {
		mutex.Lock()
		defer mutex.Unlock()
		if closed {
			return
		}
		select {
		case updates <- st:
		default:
			// UI is behind, the next refresh catches up
		}
	})
	return updates, func() {
		unsubscribe()
		mutex.Lock()
		defer mutex.Unlock()
		if !closed {
			closed = true
			close(updates)
		}
	}
}

func waitForStatus(updates <-chan motors.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return nil
		}
		return statusMsg(st)
	}
}

func doTick() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
