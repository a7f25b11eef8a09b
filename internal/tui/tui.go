// Copyright 2025 Arion Yau
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

// Package tui implements the "obelisk watch" terminal dashboard: it polls
// the status server once a second and renders worker count, queue
// occupants, and cumulative request/response/heartbeat totals.
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type statsView struct {
	Requests    uint64    `json:"requests"`
	Responses   uint64    `json:"responses"`
	Heartbeats  uint64    `json:"heartbeats"`
	StartedAt   time.Time `json:"started_at"`
	WorkerCount int       `json:"worker_count"`
}

type workerView struct {
	Identity string    `json:"identity"`
	Expiry   time.Time `json:"expiry"`
}

type model struct {
	apiAddr  string
	client   *http.Client
	width    int
	height   int
	quitting bool

	stats   statsView
	workers []workerView
	err     error
}

func newModel(apiAddr string) model {
	return model{
		apiAddr: apiAddr,
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Run launches the dashboard in the alt screen until the user quits.
func Run(apiAddr string) error {
	p := tea.NewProgram(newModel(apiAddr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type tickMsg time.Time

type pollResultMsg struct {
	stats   statsView
	workers []workerView
	err     error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) poll() tea.Cmd {
	return func() tea.Msg {
		var stats statsView
		if err := fetchJSON(m.client, m.apiAddr+"/stats", &stats); err != nil {
			return pollResultMsg{err: err}
		}
		var workers []workerView
		if err := fetchJSON(m.client, m.apiAddr+"/workers", &workers); err != nil {
			return pollResultMsg{err: err}
		}
		return pollResultMsg{stats: stats, workers: workers}
	}
}

func fetchJSON(client *http.Client, url string, v interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		return m, tea.Batch(m.poll(), tickEvery())
	case pollResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.workers = msg.workers
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("obelisk — balancer watch"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("poll error: %v", m.err)))
		b.WriteString("\n\n")
	}

	stats := fmt.Sprintf(
		"requests   %d\nresponses  %d\nheartbeats %d\nworkers    %d",
		m.stats.Requests, m.stats.Responses, m.stats.Heartbeats, m.stats.WorkerCount,
	)
	b.WriteString(boxStyle.Render(stats))
	b.WriteString("\n\n")

	if len(m.workers) == 0 {
		b.WriteString(labelStyle.Render("no workers ready"))
	} else {
		var rows []string
		for _, w := range m.workers {
			rows = append(rows, fmt.Sprintf("%s  expires %s", w.Identity, w.Expiry.Format(time.RFC3339)))
		}
		b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	}

	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("q to quit"))
	return b.String()
}
