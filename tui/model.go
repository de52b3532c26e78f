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

// Package tui is the terminal front end of the odds browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jbarkie/betbot/client"
	"github.com/jbarkie/betbot/client/search"
)

type screen int

const (
	screenHome screen = iota
	screenSport
	screenSettings
	screenAbout
)

// changedMsg tells Update that some store changed.
type changedMsg struct{}

type authDoneMsg struct{ err error }

type settingsDoneMsg struct{ err error }

// Model is the bubbletea model. Store subscribers only poke a one-slot
// channel; Update reads every store itself.
type Model struct {
	app    *client.App
	ctx    context.Context
	events chan struct{}
	styles styles

	screen  screen
	form    *authForm
	formErr string
	pending client.Route

	filter    textinput.Model
	filtering bool
	query     search.Query
	filterErr string
	cursor    int

	width, height int

	unsubs   []func()
	navUnsub func()
	initCmd  tea.Cmd
}

// New returns a model driving app. Call Close when the program exits.
func New(ctx context.Context, app *client.App) *Model {
	fi := newInput()
	fi.Prompt = "/ "
	fi.Placeholder = "team:lakers odds:available time:>=19:00"
	fi.CharLimit = 120
	fi.Width = 48

	m := &Model{
		app:    app,
		ctx:    ctx,
		events: make(chan struct{}, 1),
		styles: newStyles(app.Theme.Theme()),
		filter: fi,
	}
	m.unsubs = append(m.unsubs,
		app.Session.Subscribe(func(client.SessionState) { m.notify() }),
		app.Notifier.Subscribe(func(*client.Toast) { m.notify() }),
		app.Analytics.Subscribe(func(client.AnalyticsState) { m.notify() }),
		app.Settings.Subscribe(func(client.SettingsState) { m.notify() }),
		app.Theme.Subscribe(func(client.Theme) { m.notify() }),
	)
	m.sync()
	return m
}

func (m *Model) notify() {
	select {
	case m.events <- struct{}{}:
	default:
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.events:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Close drops every store subscription.
func (m *Model) Close() {
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
	if m.navUnsub != nil {
		m.navUnsub()
		m.navUnsub = nil
	}
}

// StartAt opens r when the program starts.
func (m *Model) StartAt(r client.Route) {
	m.initCmd = m.open(r)
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.initCmd, m.waitForEvent(), textinput.Blink)
}

// sync aligns local view state with the stores. It returns the command of a
// pending route opened by a fresh login.
func (m *Model) sync() tea.Cmd {
	m.styles = newStyles(m.app.Theme.Theme())
	st := m.app.Session.State()
	switch {
	case st.ShouldShowLoginModal && m.form == nil:
		m.form = newAuthForm(modeLogin)
		m.formErr = ""
	case !st.ShouldShowLoginModal && m.form != nil && !m.form.busy:
		m.form = nil
	}
	if st.Authorized() && m.pending != "" {
		r := m.pending
		m.pending = ""
		return m.open(r)
	}
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case changedMsg:
		return m, tea.Batch(m.sync(), m.waitForEvent())
	case authDoneMsg:
		if m.form != nil {
			m.form.busy = false
		}
		var ve *client.ValidationError
		if errors.As(msg.err, &ve) {
			m.formErr = ve.Message
		} else {
			m.formErr = ""
		}
		return m, m.sync()
	case settingsDoneMsg:
		return m, m.sync()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch {
		case m.form != nil:
			cmd = m.updateForm(msg)
		case m.filtering:
			cmd = m.updateFilter(msg)
		default:
			cmd = m.updateKeys(msg)
		}
		return m, tea.Batch(cmd, m.sync())
	}
	return m, nil
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	f := m.form
	switch msg.String() {
	case "esc":
		m.form = nil
		m.formErr = ""
		m.pending = ""
		m.app.Session.ClearError()
		m.app.Session.HideLoginModal()
		return nil
	case "tab", "down":
		return f.next()
	case "shift+tab", "up":
		return f.prev()
	case "ctrl+r":
		mode := modeRegister
		if f.mode == modeRegister {
			mode = modeLogin
		}
		m.form = newAuthForm(mode)
		m.formErr = ""
		m.app.Session.ClearError()
		return nil
	case "enter":
		if f.busy {
			return nil
		}
		// Enter on any field but the last moves on.
		if f.focus < len(f.fields)-1 {
			return f.next()
		}
		m.formErr = ""
		m.app.Session.ClearError()
		f.busy = true
		return m.submit(f)
	}
	return f.update(msg)
}

func (m *Model) submit(f *authForm) tea.Cmd {
	ctx, session := m.ctx, m.app.Session
	if f.mode == modeRegister {
		req := f.registerRequest()
		return func() tea.Msg {
			return authDoneMsg{session.Register(ctx, req)}
		}
	}
	req := f.loginRequest()
	return func() tea.Msg {
		return authDoneMsg{session.Login(ctx, req)}
	}
}

func (m *Model) updateFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.query = search.Query{}
		m.filterErr = ""
		return nil
	case "enter":
		q := search.Parse(m.filter.Value())
		if err := q.Validate(); err != nil {
			m.filterErr = err.Error()
			return nil
		}
		m.filterErr = ""
		m.query = q
		m.cursor = 0
		m.filtering = false
		m.filter.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "q":
		return tea.Quit
	case "1", "2", "3", "4":
		return m.open(client.SportRoute(client.Sports[key[0]-'1']))
	case "h":
		return m.open(client.RouteHome)
	case "a":
		return m.open(client.RouteAbout)
	case "s":
		return m.open(client.RouteSettings)
	case "l":
		if !m.app.Session.State().Authorized() {
			m.app.Session.ShowLoginModal()
		}
		return nil
	case "o":
		if m.app.Session.State().IsAuthenticated {
			m.app.Session.Logout()
			m.app.Notifier.Success("Logged out")
		}
		return nil
	case "t":
		m.app.Theme.Toggle()
		return nil
	}
	switch m.screen {
	case screenSport:
		return m.updateSportKeys(key)
	case screenSettings:
		if key == "e" {
			return m.toggleNotifications()
		}
	}
	return nil
}

func (m *Model) updateSportKeys(key string) tea.Cmd {
	nav := m.app.Active()
	if nav == nil {
		return nil
	}
	switch key {
	case "left", "p":
		// Drawn disabled at today.
		if !nav.CanGoBack() {
			return nil
		}
		nav.PreviousDay()
		m.cursor = 0
	case "right", "n":
		nav.NextDay()
		m.cursor = 0
	case ".":
		nav.Today()
		m.cursor = 0
	case "r":
		nav.Refresh()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.games())-1 {
			m.cursor++
		}
	case "enter":
		games := m.games()
		if m.cursor < len(games) {
			m.app.Analytics.Analyze(games[m.cursor])
		}
	case "/":
		m.filtering = true
		return m.filter.Focus()
	case "esc":
		if m.app.Analytics.State().Open() {
			m.app.Analytics.Reset()
		} else {
			m.query = search.Query{}
			m.filter.SetValue("")
		}
	}
	return nil
}

// open navigates to r. A denied route is remembered and opened after login.
func (m *Model) open(r client.Route) tea.Cmd {
	if r == client.RouteHome || r == client.RouteAbout {
		m.leaveSport()
		m.screen = screenHome
		if r == client.RouteAbout {
			m.screen = screenAbout
		}
		return nil
	}
	if r == client.RouteSettings {
		if !m.app.Guard.CanActivate(r) {
			m.pending = r
			return nil
		}
		m.leaveSport()
		m.screen = screenSettings
		ctx, settings := m.ctx, m.app.Settings
		return func() tea.Msg {
			return settingsDoneMsg{settings.Load(ctx)}
		}
	}
	sport, err := client.ParseSport(string(r))
	if err != nil {
		return nil
	}
	nav, err := m.app.OpenSport(sport)
	if err != nil {
		m.pending = r
		return nil
	}
	if m.navUnsub != nil {
		m.navUnsub()
	}
	m.navUnsub = nav.Subscribe(m.notify)
	m.screen = screenSport
	m.cursor = 0
	m.query = search.Query{}
	m.filter.SetValue("")
	m.app.Analytics.Reset()
	return nil
}

func (m *Model) leaveSport() {
	if m.navUnsub != nil {
		m.navUnsub()
		m.navUnsub = nil
	}
	m.app.CloseSport()
	m.app.Analytics.Reset()
}

func (m *Model) toggleNotifications() tea.Cmd {
	st := m.app.Settings.State()
	if st.Settings == nil || st.IsLoading {
		return nil
	}
	req := client.Settings{EmailNotificationsEnabled: !st.Settings.EmailNotificationsEnabled}
	ctx, settings := m.ctx, m.app.Settings
	return func() tea.Msg {
		return settingsDoneMsg{settings.Update(ctx, req)}
	}
}

func (m *Model) view() client.View {
	nav := m.app.Active()
	if nav == nil {
		return client.View{}
	}
	if m.query.Empty() {
		return nav.View()
	}
	return nav.FilteredView(m.query.Matcher(nav.Location()))
}

func (m *Model) games() []client.Game {
	return m.view().Games
}

func (m *Model) View() string {
	st := m.styles
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.form != nil {
		modal := m.form.view(st, m.modalError())
		if m.width > 0 && m.height > 0 {
			modal = lipgloss.Place(m.width, max(m.height-6, lipgloss.Height(modal)), lipgloss.Center, lipgloss.Center, modal)
		}
		b.WriteString(modal)
	} else {
		switch m.screen {
		case screenHome:
			b.WriteString(m.homeView())
		case screenAbout:
			b.WriteString(aboutText)
		case screenSettings:
			b.WriteString(m.settingsView())
		case screenSport:
			b.WriteString(m.sportView())
		}
	}

	b.WriteString("\n\n")
	if t := m.app.Notifier.Current(); t != nil {
		if t.Type == client.ToastError {
			b.WriteString(st.error.Render(t.Message))
		} else {
			b.WriteString(st.success.Render(t.Message))
		}
		b.WriteString("\n")
	}
	b.WriteString(st.subtle.Render(m.helpText()))
	return b.String()
}

func (m *Model) modalError() string {
	if m.formErr != "" {
		return m.formErr
	}
	return m.app.Session.State().Error
}

func (m *Model) headerView() string {
	st := m.styles
	tabs := []string{st.header.Render("BetBot")}
	active := ""
	if nav := m.app.Active(); nav != nil && m.screen == screenSport {
		active = string(nav.Sport())
	}
	for i, s := range client.Sports {
		label := fmt.Sprintf("%d %s", i+1, s)
		if string(s) == active {
			tabs = append(tabs, st.tabOn.Render(label))
		} else {
			tabs = append(tabs, st.tab.Render(label))
		}
	}
	for _, p := range []struct {
		s     screen
		label string
	}{{screenSettings, "Settings"}, {screenAbout, "About"}} {
		if m.screen == p.s {
			tabs = append(tabs, st.tabOn.Render(p.label))
		} else {
			tabs = append(tabs, st.tab.Render(p.label))
		}
	}
	user := st.subtle.Render("Not signed in")
	if m.app.Session.State().Authorized() {
		if name := m.app.Session.Username(); name != "" {
			user = st.text.Render("Signed in as " + name)
		} else {
			user = st.text.Render("Signed in")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "  " + user
}

const aboutText = `BetBot shows moneyline odds for NBA, MLB, NFL and NHL games by day,
with on-demand predictions for any game on the board.`

func (m *Model) homeView() string {
	st := m.styles
	var b strings.Builder
	b.WriteString(st.title.Render("Welcome to BetBot"))
	b.WriteString("\n\n")
	for i, s := range client.Sports {
		fmt.Fprintf(&b, "  %d  %s %s\n", i+1, s, s.Name())
	}
	if !m.app.Session.State().Authorized() {
		b.WriteString("\n")
		b.WriteString(st.subtle.Render("Press l to log in."))
	}
	return b.String()
}

func (m *Model) settingsView() string {
	st := m.styles
	s := m.app.Settings.State()
	var b strings.Builder
	b.WriteString(st.title.Render("Settings"))
	b.WriteString("\n\n")
	switch {
	case s.IsLoading:
		b.WriteString("Loading settings...")
	case s.HasError():
		b.WriteString(st.error.Render("Error: " + s.Error))
	case s.Settings != nil:
		notif := "off"
		if s.Settings.EmailNotificationsEnabled {
			notif = "on"
		}
		fmt.Fprintf(&b, "Username:            %s\n", s.Settings.Username)
		fmt.Fprintf(&b, "Email:               %s\n", s.Settings.Email)
		fmt.Fprintf(&b, "Email notifications: %s", notif)
	}
	return b.String()
}

func (m *Model) sportView() string {
	st := m.styles
	v := m.view()
	if v.Gated {
		return st.error.Render(v.Message)
	}
	var b strings.Builder
	b.WriteString(st.title.Render(v.Title))
	b.WriteString("\n")

	back := "« "
	if !v.CanGoBack {
		back = "  "
	}
	date := v.DateLabel
	if v.IsToday {
		date += " (today)"
	}
	b.WriteString(st.subtle.Render(back) + st.text.Render(date) + st.subtle.Render(" »"))
	b.WriteString("\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
		if m.filterErr != "" {
			b.WriteString(st.error.Render(m.filterErr))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	switch v.Body {
	case client.BodyLoading:
		b.WriteString(st.subtle.Render("Loading games..."))
	case client.BodyError:
		b.WriteString(st.error.Render("Error: " + v.Error))
	case client.BodyEmpty:
		b.WriteString(client.EmptyGamesMessage)
	case client.BodyGames:
		if len(v.Games) == 0 {
			b.WriteString(client.NoMatchesMessage)
		}
		for i, g := range v.Games {
			card := strings.TrimRight(client.RenderGame(g, v.Location), "\n")
			if i == m.cursor {
				card = st.selected.Render(card)
			}
			b.WriteString(card)
			b.WriteString("\n")
		}
		if v.Filtered {
			b.WriteString(st.subtle.Render(fmt.Sprintf("%d of %d games", len(v.Games), v.Total)))
		}
	}

	if a := m.app.Analytics.State(); a.Open() {
		b.WriteString("\n\n")
		b.WriteString(m.analyticsView(a))
	}
	return b.String()
}

func (m *Model) analyticsView(a client.AnalyticsState) string {
	st := m.styles
	var b strings.Builder
	b.WriteString(st.title.Render("Analytics: " + a.Game.Matchup()))
	b.WriteString("\n")
	switch {
	case a.IsLoading:
		b.WriteString("Analyzing...")
	case a.Error != "":
		b.WriteString(st.error.Render(a.Error))
	case a.Result != nil:
		fmt.Fprintf(&b, "Predicted winner: %s (%.0f%%)", a.Result.PredictedWinner, a.Result.WinProbability*100)
	}
	return st.panel.Render(b.String())
}

func (m *Model) helpText() string {
	switch {
	case m.form != nil:
		return "ctrl+c: quit"
	case m.filtering:
		return "enter: apply filter  esc: clear"
	case m.screen == screenSport:
		return "←/→: day  .: today  r: refresh  ↑/↓: select  enter: analytics  /: filter  t: theme  o: log out  q: quit"
	case m.screen == screenSettings:
		return "e: toggle email notifications  h: home  q: quit"
	}
	if m.app.Session.State().Authorized() {
		return "1-4: sports  s: settings  a: about  t: theme  o: log out  q: quit"
	}
	return "1-4: sports  l: log in  a: about  t: theme  q: quit"
}
