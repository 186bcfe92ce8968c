package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/gesture"
	"github.com/javiermolinar/clinicflow/internal/tui/commands"
)

// handleMouseMsg turns terminal mouse events into gesture events.
func (m Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != ModeNormal {
		return m, nil
	}
	l := m.layout()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scroll = max(min(m.scroll, l.MaxScroll)-1, 0)
			return m, nil
		case tea.MouseButtonWheelDown:
			m.scroll = min(m.scroll+1, l.MaxScroll)
			return m, nil
		case tea.MouseButtonLeft:
			return m.pointerDown(l, msg.X, msg.Y)
		}

	case tea.MouseActionMotion:
		if !m.state.Gesture.Active() {
			return m, nil
		}
		if !l.InGrid(msg.X, msg.Y) {
			return m.dispatch(l, gesture.PointerLeave{})
		}
		resizing := m.state.Gesture.Phase == gesture.Resizing
		return m.dispatch(l, gesture.PointerMove{At: l.Point(msg.X, msg.Y, resizing)})

	case tea.MouseActionRelease:
		if !m.state.Gesture.Active() {
			return m, nil
		}
		if !l.InGrid(msg.X, msg.Y) {
			return m.dispatch(l, gesture.PointerLeave{})
		}
		resizing := m.state.Gesture.Phase == gesture.Resizing
		return m.dispatch(l, gesture.PointerUp{At: l.Point(msg.X, msg.Y, resizing)})
	}
	return m, nil
}

func (m Model) pointerDown(l Layout, x, y int) (tea.Model, tea.Cmd) {
	if l.View == calendar.ViewMonth {
		a, ok := l.hitMonth(l.monthDays(m.state.Anchor, m.visible()), x, y)
		if !ok {
			return m, nil
		}
		m.selected = a.ID
		return m.dispatch(l, gesture.PointerDown{
			Target: gesture.Target{ID: a.ID, Start: a.Start, Duration: a.Duration},
			Part:   gesture.Body,
			At:     l.Point(x, y, false),
		})
	}

	days := calendar.Days(m.state.View, m.state.Anchor)
	b, part, ok := l.hitBlock(l.blocks(days, m.visible()), x, y)
	if !ok {
		return m, nil
	}
	m.selected = b.appt.ID
	if m.store.IsPending(b.appt.ID) {
		return m, nil
	}
	return m.dispatch(l, gesture.PointerDown{
		Target: gesture.Target{ID: b.appt.ID, Start: b.appt.Start, Duration: b.appt.Duration},
		Part:   part,
		At:     l.Point(x, y, part == gesture.ResizeHandle),
	})
}

// dispatch runs ev through the gesture reducer and carries out its effects.
func (m Model) dispatch(l Layout, ev gesture.Event) (tea.Model, tea.Cmd) {
	wasActive := m.state.Gesture.Active()
	next, effects := gesture.Reduce(m.state, l.Geometry(), ev)
	m.state = next

	var cmds []tea.Cmd
	committed := false
	for _, eff := range effects {
		switch eff := eff.(type) {
		case gesture.Preview:
			if err := m.store.Preview(eff.ID, eff.Start, eff.Duration); err != nil {
				m.logger.Debug("preview dropped", zap.String("id", eff.ID), zap.Error(err))
			}
		case gesture.Commit:
			committed = true
			mut, err := m.store.BeginUpdateTime(eff.ID, eff.Start, eff.Duration)
			if err != nil {
				m.store.DiscardPreviews()
				m = m.setStatus("Cannot move appointment: " + err.Error())
				continue
			}
			m.logger.Info("moving appointment",
				zap.String("id", eff.ID),
				zap.Time("start", eff.Start),
				zap.Int("duration", eff.Duration),
				zap.Bool("resize", eff.Resize),
			)
			cmds = append(cmds, commands.ExecuteMutation(m.repo, mut), m.tick())
		}
	}

	if wasActive && !m.state.Gesture.Active() && !committed {
		m.store.DiscardPreviews()
	}
	return m, tea.Batch(cmds...)
}
