// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/jbarkie/betbot/client"
)

type palette struct {
	accent, subtle, text, good, bad, selected lipgloss.Color
}

var palettes = map[client.Theme]palette{
	client.ThemeLight: {accent: "25", subtle: "244", text: "235", good: "28", bad: "160", selected: "153"},
	client.ThemeDark:  {accent: "39", subtle: "243", text: "252", good: "10", bad: "9", selected: "24"},
}

type styles struct {
	theme client.Theme

	header   lipgloss.Style
	tab      lipgloss.Style
	tabOn    lipgloss.Style
	title    lipgloss.Style
	subtle   lipgloss.Style
	text     lipgloss.Style
	selected lipgloss.Style
	success  lipgloss.Style
	error    lipgloss.Style
	modal    lipgloss.Style
	panel    lipgloss.Style
}

func newStyles(t client.Theme) styles {
	p, ok := palettes[t]
	if !ok {
		p = palettes[client.ThemeLight]
	}
	return styles{
		theme:    t,
		header:   lipgloss.NewStyle().Bold(true).Foreground(p.accent).Padding(0, 1),
		tab:      lipgloss.NewStyle().Foreground(p.subtle).Padding(0, 1),
		tabOn:    lipgloss.NewStyle().Foreground(p.accent).Bold(true).Underline(true).Padding(0, 1),
		title:    lipgloss.NewStyle().Bold(true).Foreground(p.text),
		subtle:   lipgloss.NewStyle().Foreground(p.subtle),
		text:     lipgloss.NewStyle().Foreground(p.text),
		selected: lipgloss.NewStyle().Background(p.selected).Foreground(p.text),
		success:  lipgloss.NewStyle().Foreground(p.good).Bold(true),
		error:    lipgloss.NewStyle().Foreground(p.bad).Bold(true),
		modal:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.accent).Padding(1, 2),
		panel:    lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(p.subtle).Padding(0, 1),
	}
}
