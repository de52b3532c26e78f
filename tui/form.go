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
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jbarkie/betbot/client"
)

// cursorMode applies to every text input.
var cursorMode = cursor.CursorBlink

func newInput() textinput.Model {
	ti := textinput.New()
	ti.Cursor.SetMode(cursorMode)
	return ti
}

type formMode int

const (
	modeLogin formMode = iota
	modeRegister
)

type field struct {
	key   string
	label string
	input textinput.Model
}

// authForm is the login/register modal.
type authForm struct {
	mode   formMode
	fields []field
	focus  int
	busy   bool
}

func newField(key, label string, secret bool) field {
	ti := newInput()
	ti.Prompt = ""
	ti.CharLimit = 128
	ti.Width = 32
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return field{key: key, label: label, input: ti}
}

func newAuthForm(mode formMode) *authForm {
	f := &authForm{mode: mode}
	switch mode {
	case modeLogin:
		f.fields = []field{
			newField("username", "Username", false),
			newField("password", "Password", true),
		}
	case modeRegister:
		f.fields = []field{
			newField("username", "Username", false),
			newField("first_name", "First name", false),
			newField("last_name", "Last name", false),
			newField("email", "Email", false),
			newField("password", "Password", true),
			newField("confirm_password", "Confirm password", true),
		}
	}
	f.fields[0].input.Focus()
	return f
}

func (f *authForm) value(key string) string {
	for _, fl := range f.fields {
		if fl.key == key {
			return fl.input.Value()
		}
	}
	return ""
}

func (f *authForm) setFocus(i int) tea.Cmd {
	n := len(f.fields)
	f.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range f.fields {
		if j == f.focus {
			cmd = f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	return cmd
}

func (f *authForm) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *authForm) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *authForm) loginRequest() client.LoginRequest {
	return client.LoginRequest{
		Username: strings.TrimSpace(f.value("username")),
		Password: f.value("password"),
	}
}

func (f *authForm) registerRequest() client.RegisterRequest {
	return client.RegisterRequest{
		Username:        strings.TrimSpace(f.value("username")),
		FirstName:       strings.TrimSpace(f.value("first_name")),
		LastName:        strings.TrimSpace(f.value("last_name")),
		Email:           strings.TrimSpace(f.value("email")),
		Password:        f.value("password"),
		ConfirmPassword: f.value("confirm_password"),
	}
}

func (f *authForm) view(st styles, sessionErr string) string {
	var b strings.Builder
	title := "Log in"
	other := "ctrl+r: create an account"
	if f.mode == modeRegister {
		title = "Create an account"
		other = "ctrl+r: log in instead"
	}
	b.WriteString(st.title.Render(title))
	b.WriteString("\n\n")
	for i, fl := range f.fields {
		label := fl.label
		if i == f.focus {
			label = st.header.UnsetPadding().Render(label)
		} else {
			label = st.subtle.Render(label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(fl.input.View())
		b.WriteString("\n\n")
	}
	if sessionErr != "" {
		b.WriteString(st.error.Render(sessionErr))
		b.WriteString("\n\n")
	}
	if f.busy {
		b.WriteString(st.subtle.Render("Working..."))
	} else {
		b.WriteString(st.subtle.Render("enter: submit  tab: next field  esc: close  " + other))
	}
	return st.modal.Render(b.String())
}
